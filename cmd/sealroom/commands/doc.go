// Package commands defines the sealroom CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - init         Create the local identity and publish its public key
//   - fingerprint  Print the identity fingerprint
//   - room create  Create a room and distribute its first key
//   - room grant   Grant the active room key to a late joiner
//   - room rotate  Rotate a room key after a member was removed
//   - send         Encrypt and send a message to a room
//   - recv         Fetch queued envelopes and process them
//
// # Implementation
//
// The root command loads the toml config and sets up logging before any
// subcommand runs; commands that talk to the relay assemble the full app
// graph on demand so identity-only commands never open the key database.
package commands
