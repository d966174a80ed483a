package message

import (
	"errors"
	"time"

	"sealroom/internal/crypto"
	"sealroom/internal/domain"
	"sealroom/internal/roomkey"
)

// Cipher seals and opens message bodies using the room keys held by a
// Manager. It is stateless beyond its collaborators and safe for concurrent
// use.
type Cipher struct {
	provider *crypto.Provider
	rooms    *roomkey.Manager
}

// New returns a cipher over the given provider and room-key manager.
func New(provider *crypto.Provider, rooms *roomkey.Manager) *Cipher {
	return &Cipher{provider: provider, rooms: rooms}
}

// EncryptForSend seals plaintext under the room's active key and stamps the
// resulting record with that key version. ErrKeyNotAvailable means this
// device holds no key for the room yet; the caller should request a grant.
func (c *Cipher) EncryptForSend(room domain.RoomID, plaintext []byte) (domain.EncryptedMessage, error) {
	version, err := c.rooms.ActiveVersion(room)
	if err != nil {
		return domain.EncryptedMessage{}, err
	}
	rk, err := c.rooms.KeyFor(room, version)
	if err != nil {
		return domain.EncryptedMessage{}, err
	}

	nonce, ct, err := c.provider.Seal(plaintext, rk.Key)
	if err != nil {
		return domain.EncryptedMessage{}, err
	}
	return domain.EncryptedMessage{
		RoomID:     room,
		SenderID:   c.rooms.Self(),
		KeyVersion: version,
		Nonce:      nonce,
		Ciphertext: ct,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// DecryptForDisplay opens a stored message. A key version this device never
// received yields a *domain.GapError (matching ErrDecryptionGap); a failed
// integrity check propagates ErrAuthenticationFailure verbatim.
func (c *Cipher) DecryptForDisplay(msg domain.EncryptedMessage) ([]byte, error) {
	rk, err := c.rooms.KeyFor(msg.RoomID, msg.KeyVersion)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotAvailable) {
			return nil, &domain.GapError{RoomID: msg.RoomID, Version: msg.KeyVersion}
		}
		return nil, err
	}
	return c.provider.Open(msg.Nonce, msg.Ciphertext, rk.Key)
}
