// Package roomkey owns the lifecycle of every room's symmetric content key:
// generation, per-member encrypted distribution, local caching and rotation
// when membership shrinks.
//
// # Model
//
// Each (room, version) is either unknown or cached; once cached it stays
// cached forever, so messages sealed under old versions remain readable.
// The active version of a room is the highest one this device holds. Only a
// holder of a version can grant it onward, which keeps key distribution on
// the existing trust graph rather than letting the server mint grants.
//
// # Concurrency
//
// All mutations of one room's state are serialized by a per-room mutex;
// operations on distinct rooms proceed fully in parallel. Nothing in this
// package touches the network: a missing key surfaces as
// domain.ErrKeyNotAvailable, a signal for the boundary to fetch a grant
// asynchronously, never something the manager waits on.
package roomkey
