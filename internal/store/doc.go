// Package store provides the durable local persistence for sealroom's key
// material, the only shared mutable state in the core.
//
// It contains two concrete implementations of the domain storage interfaces:
//
//   - FileStore persists the identity key pair as a single passphrase-
//     encrypted file (scrypt key derivation, ChaCha20-Poly1305 envelope,
//     atomic temp-file writes).
//   - BoltStore persists received room keys in a bbolt database, one bucket
//     per room keyed by big-endian version. Records are CBOR-encoded and
//     sealed with a store key derived from the same passphrase, so key bytes
//     never touch disk in the clear. Versions are never deleted: history
//     stays decryptable forever once a grant was received.
//
// All methods are concurrency-safe. Stored files live under the user's
// configured home directory.
package store
