package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"sealroom/internal/domain"
)

// Fingerprint returns a short fingerprint of an identity public key,
// suitable for out-of-band comparison by the key's owner.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub domain.X25519Public) domain.Fingerprint {
	sum := sha256.Sum256(pub[:])
	return domain.Fingerprint(hex.EncodeToString(sum[:10]))
}
