package crypto

import (
	"golang.org/x/crypto/nacl/secretbox"

	"sealroom/internal/domain"
)

// Seal encrypts and authenticates plaintext under key with a fresh random
// nonce. The nonce is drawn here, never accepted from the caller.
func (p *Provider) Seal(plaintext []byte, key domain.SymmetricKey) (domain.Nonce, []byte, error) {
	nonce, err := p.newNonce()
	if err != nil {
		return nonce, nil, err
	}
	ct := secretbox.Seal(nil, plaintext, (*[24]byte)(&nonce), (*[32]byte)(&key))
	return nonce, ct, nil
}

// Open verifies and decrypts a sealed payload. Any tampering with the
// ciphertext or nonce, or a wrong key, yields ErrAuthenticationFailure and
// no plaintext.
func (p *Provider) Open(nonce domain.Nonce, ciphertext []byte, key domain.SymmetricKey) ([]byte, error) {
	pt, ok := secretbox.Open(nil, ciphertext, (*[24]byte)(&nonce), (*[32]byte)(&key))
	if !ok {
		return nil, domain.ErrAuthenticationFailure
	}
	return pt, nil
}
