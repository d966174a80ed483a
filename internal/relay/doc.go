// Package relay provides the HTTP client for the store-and-forward relay
// server sealroom talks to.
//
// The relay never sees plaintext: it stores encrypted messages and wrapped
// key grants as opaque records and replays them to offline members. This
// client implements the domain boundary interfaces against it:
//
//   - Delivery: posting encrypted messages and key grants.
//   - IdentityRegistry: resolving a user's current identity public key.
//   - MembershipDirectory: listing a room's current members.
//
// plus fetching and acknowledging queued envelopes for the local user.
//
// All requests are JSON over HTTP and accept a context for cancellation and
// deadlines. Non-2xx statuses are returned as errors with the HTTP method,
// path, and status text to aid diagnostics.
package relay
