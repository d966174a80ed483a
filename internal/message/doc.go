// Package message turns plaintext message bodies into stored ciphertext and
// back, stamping each ciphertext with the room key version that sealed it.
//
// Decryption distinguishes two failure states the UI must render
// differently: a decryption gap (the key version has not arrived yet; a
// placeholder that resolves itself once the grant lands) and an
// authentication failure (tampering or corruption; a permanent warning,
// never altered content).
package message
