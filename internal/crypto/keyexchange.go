package crypto

import (
	"golang.org/x/crypto/nacl/box"

	"sealroom/internal/domain"
)

// Wrap authenticated-encrypts payload so that only the holder of the private
// key matching recipientPub, verifying against the sender's public key, can
// recover it. Used exclusively to wrap 32-byte room keys into grants.
func (p *Provider) Wrap(
	payload []byte,
	recipientPub domain.X25519Public,
	senderPriv domain.X25519Private,
) (domain.Nonce, []byte, error) {
	nonce, err := p.newNonce()
	if err != nil {
		return nonce, nil, err
	}
	ct := box.Seal(nil, payload, (*[24]byte)(&nonce), (*[32]byte)(&recipientPub), (*[32]byte)(&senderPriv))
	return nonce, ct, nil
}

// Unwrap is the counterpart of Wrap. Failure means corruption or a spoofed
// sender claim; the grant is unusable and must be re-requested, not retried.
func (p *Provider) Unwrap(
	nonce domain.Nonce,
	ciphertext []byte,
	senderPub domain.X25519Public,
	recipientPriv domain.X25519Private,
) ([]byte, error) {
	pt, ok := box.Open(nil, ciphertext, (*[24]byte)(&nonce), (*[32]byte)(&senderPub), (*[32]byte)(&recipientPriv))
	if !ok {
		return nil, domain.ErrAuthenticationFailure
	}
	return pt, nil
}
