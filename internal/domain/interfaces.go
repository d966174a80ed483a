package domain

import "context"

// IdentityRegistry resolves a user's current identity public key. Backed by
// the relay's identity directory; consulted when creating a room or granting
// a key to a new member.
type IdentityRegistry interface {
	PublicKeyOf(ctx context.Context, user UserID) (X25519Public, error)
}

// MembershipDirectory reports the current members of a room. After a
// membership change it already excludes the removed user.
type MembershipDirectory interface {
	Members(ctx context.Context, room RoomID) ([]UserID, error)
}

// Delivery is the outbound sink toward the relay. Both record types are
// opaque to it; it stores and forwards without decoding ciphertext fields.
// Grants may be re-sent freely since applying one is idempotent.
type Delivery interface {
	SendMessage(ctx context.Context, msg EncryptedMessage) error
	SendGrant(ctx context.Context, grant EncryptedRoomKeyGrant) error
}

// RoomKeyStore is the durable local cache of received room keys. Versions
// are never deleted once stored; PutRoomKey is idempotent per
// (room, version) with first-write-wins semantics.
type RoomKeyStore interface {
	PutRoomKey(rk RoomKey) error
	RoomKey(room RoomID, version KeyVersion) (RoomKey, bool, error)
	MaxVersion(room RoomID) (KeyVersion, bool, error)
}

// IdentityStore persists the long-lived identity key pair, encrypted at rest
// under a passphrase. LoadIdentity returns ErrIdentityNotFound when nothing
// has been stored and ErrAuthenticationFailure on a wrong passphrase.
type IdentityStore interface {
	SaveIdentity(passphrase string, pair IdentityKeyPair) error
	LoadIdentity(passphrase string) (IdentityKeyPair, error)
}
