package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"sealroom/internal/domain"
)

// Provider is the handle through which every primitive runs. Constructing
// one proves the CSRNG works; there is no package-level fallback, so code
// holding a *Provider can generate keys and nonces without re-checking.
type Provider struct {
	rand io.Reader
}

// NewProvider probes the system CSRNG and returns a ready handle. Failure is
// fatal for the caller: without randomness no key or nonce can be made.
func NewProvider() (*Provider, error) {
	var probe [1]byte
	if _, err := io.ReadFull(rand.Reader, probe[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRngUnavailable, err)
	}
	return &Provider{rand: rand.Reader}, nil
}

// NewRoomKey returns 32 fresh random bytes for use as a room content key.
func (p *Provider) NewRoomKey() (domain.SymmetricKey, error) {
	var key domain.SymmetricKey
	if _, err := io.ReadFull(p.rand, key[:]); err != nil {
		return key, fmt.Errorf("%w: %v", domain.ErrRngUnavailable, err)
	}
	return key, nil
}

// newNonce draws a fresh 24-byte nonce. Random nonces of this size make
// reuse under one key a non-issue across any realistic message volume.
func (p *Provider) newNonce() (domain.Nonce, error) {
	var nonce domain.Nonce
	if _, err := io.ReadFull(p.rand, nonce[:]); err != nil {
		return nonce, fmt.Errorf("%w: %v", domain.ErrRngUnavailable, err)
	}
	return nonce, nil
}
