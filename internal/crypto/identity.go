package crypto

import (
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"

	"sealroom/internal/domain"
)

// GenerateIdentity returns a fresh X25519 identity key pair.
// The private key is clamped per RFC 7748.
func (p *Provider) GenerateIdentity() (domain.IdentityKeyPair, error) {
	var priv domain.X25519Private
	if _, err := io.ReadFull(p.rand, priv[:]); err != nil {
		return domain.IdentityKeyPair{}, fmt.Errorf("%w: %v", domain.ErrRngUnavailable, err)
	}
	clamp(&priv)

	pb, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return domain.IdentityKeyPair{}, err
	}
	var pub domain.X25519Public
	copy(pub[:], pb)
	return domain.IdentityKeyPair{Public: pub, Private: priv}, nil
}

func clamp(k *domain.X25519Private) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}
