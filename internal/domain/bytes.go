package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// MarshalJSON encodes the key as standard base64.
func (p X25519Public) MarshalJSON() ([]byte, error) { return marshalBase64(p[:]) }

// UnmarshalJSON decodes a standard-base64 string of exactly 32 bytes.
func (p *X25519Public) UnmarshalJSON(data []byte) error { return unmarshalBase64(data, p[:]) }

// X25519Private is a Curve25519 private key. It never appears in a wire
// record; the JSON codec exists only for the encrypted local key store.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// MarshalJSON encodes the key as standard base64.
func (k X25519Private) MarshalJSON() ([]byte, error) { return marshalBase64(k[:]) }

// UnmarshalJSON decodes a standard-base64 string of exactly 32 bytes.
func (k *X25519Private) UnmarshalJSON(data []byte) error { return unmarshalBase64(data, k[:]) }

// SymmetricKey is a 32-byte room content key.
type SymmetricKey [32]byte

// Slice returns the key as a []byte.
func (k SymmetricKey) Slice() []byte { return k[:] }

// MarshalJSON encodes the key as standard base64.
func (k SymmetricKey) MarshalJSON() ([]byte, error) { return marshalBase64(k[:]) }

// UnmarshalJSON decodes a standard-base64 string of exactly 32 bytes.
func (k *SymmetricKey) UnmarshalJSON(data []byte) error { return unmarshalBase64(data, k[:]) }

// Nonce is the 24-byte random nonce attached to every sealed payload.
type Nonce [24]byte

// Slice returns the nonce as a []byte.
func (n Nonce) Slice() []byte { return n[:] }

// MarshalJSON encodes the nonce as standard base64.
func (n Nonce) MarshalJSON() ([]byte, error) { return marshalBase64(n[:]) }

// UnmarshalJSON decodes a standard-base64 string of exactly 24 bytes.
func (n *Nonce) UnmarshalJSON(data []byte) error { return unmarshalBase64(data, n[:]) }

func marshalBase64(b []byte) ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(b))
}

func unmarshalBase64(data []byte, dst []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("decoded %d bytes, want %d", len(raw), len(dst))
	}
	copy(dst, raw)
	return nil
}
