// Package identity manages the local long-lived identity key pair: creation
// on first use, loading from the encrypted store, and fingerprinting for
// display. The private half lives only in the store and in the running
// process; it is never written into a network-facing structure.
package identity
