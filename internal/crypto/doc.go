// Package crypto exposes the primitives used by sealroom.
//
// Contents
//
//   - Provider, the capability handle gating all primitive use on a working
//     CSRNG (NewProvider)
//   - Symmetric authenticated encryption of message bodies (Seal, Open)
//   - Asymmetric wrapping of room keys for one recipient (Wrap, Unwrap)
//   - X25519 identity key generation with RFC 7748 clamping
//     (GenerateIdentity)
//   - Fresh room keys (NewRoomKey)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//
// # Notes
//
// All functions operate on fixed-size array types defined in internal/domain
// to avoid accidental reallocations. Nonces are always sourced from the
// CSRNG inside this package; no API accepts a caller-supplied nonce, which
// structurally rules out nonce reuse under a key. Callers should treat
// returned secrets as sensitive and rely on Wipe when practical.
package crypto
