// Package syncproto is the boundary between the crypto core and the
// delivery channel. It routes inbound envelopes (messages, key grants,
// membership changes) to the room-key manager and message cipher, and emits
// ciphertext records outbound.
//
// The protocol never blocks on network I/O and never sees plaintext leave
// the process: decrypted bodies go straight to the registered callbacks. A
// missing key surfaces as a gap callback so the UI can render a placeholder
// that resolves once the grant arrives; a failed integrity check surfaces as
// a tamper callback and is never rendered as content.
package syncproto
