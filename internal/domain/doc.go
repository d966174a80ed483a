// Package domain defines the record types exchanged by the sealroom core and
// the error taxonomy shared by every layer.
//
// The types fall into three groups:
//
//   - Key material: IdentityKeyPair, RoomKey and the fixed-size byte types
//     they are built from (X25519Public, X25519Private, SymmetricKey, Nonce).
//   - Wire records: EncryptedRoomKeyGrant, EncryptedMessage, MembershipChange
//     and the Envelope tagged union that carries exactly one of them.
//   - Boundary interfaces: the identity registry, membership directory,
//     delivery sink and the storage contracts implemented in internal/store.
//
// All byte fields marshal to standard base64 in JSON so every record is
// text-safe on the wire. Ciphertext and wrapped-key fields are opaque to the
// relay and to persistence; only the holders of the matching keys can decode
// them.
package domain
