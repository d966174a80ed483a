package domain

// IdentityKeyPair holds a user's long-lived X25519 keys. The private half is
// exclusively owned by the device that generated it: it is written only to
// the encrypted local key store and never into any wire record. The public
// half is copied to the server and to other members; that copy is a value,
// not a reference, so superseding it means issuing a new identity.
type IdentityKeyPair struct {
	Public  X25519Public  `json:"public"`
	Private X25519Private `json:"private"`
}
