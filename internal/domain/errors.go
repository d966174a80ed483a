package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationFailure means a sealed payload failed its integrity
	// check: tampering, corruption, a wrong key or a spoofed sender claim.
	// No plaintext is ever returned alongside it.
	ErrAuthenticationFailure = errors.New("authentication failure")

	// ErrKeyNotAvailable means the referenced room key version is not in the
	// local cache. It is a signal to request a grant from a current member
	// or the server's grant replay, never a fatal condition.
	ErrKeyNotAvailable = errors.New("room key not available")

	// ErrDecryptionGap is the user-visible form of a missing key: a message
	// exists whose key version this device has not yet received. It is
	// distinct from corruption and resolves itself once the grant arrives.
	ErrDecryptionGap = errors.New("key for this message not yet received")

	// ErrRngUnavailable means the secure random source failed. Key material
	// cannot be generated; callers must treat this as fatal, not retry.
	ErrRngUnavailable = errors.New("secure random source unavailable")

	// ErrIdentityNotFound means no identity has been stored yet. This is a
	// normal first-run state; callers respond by generating one.
	ErrIdentityNotFound = errors.New("no identity stored")
)

// GapError reports which room key version a message needs but the local cache
// lacks. It unwraps to ErrDecryptionGap so callers can match either the
// sentinel or the carried detail.
type GapError struct {
	RoomID  RoomID
	Version KeyVersion
}

// Error implements the error interface.
func (e *GapError) Error() string {
	return fmt.Sprintf("room %s: missing key version %d", e.RoomID, e.Version)
}

// Unwrap lets errors.Is(err, ErrDecryptionGap) succeed.
func (e *GapError) Unwrap() error { return ErrDecryptionGap }
