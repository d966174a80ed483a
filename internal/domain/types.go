package domain

// UserID identifies a registered user.
type UserID string

// String returns the string form of the user identifier.
func (u UserID) String() string { return string(u) }

// RoomID identifies a chat room.
type RoomID string

// String returns the string form of the room identifier.
func (r RoomID) String() string { return string(r) }

// KeyVersion is the monotonically increasing generation counter of a room
// key. Versions start at FirstKeyVersion; zero means "no key known".
type KeyVersion uint64

// FirstKeyVersion is the version assigned when a room is created.
const FirstKeyVersion KeyVersion = 1

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
