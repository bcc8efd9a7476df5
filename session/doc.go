// Package session provides challenge-session persistence over a store.Backend and the
// compact binary encoding used for session blobs.
//
// # Binary encoding
//
// Sessions are stored as a versioned binary format. The first byte is the schema
// version; unknown versions are rejected rather than guessed at. Version 2 appends the
// per-cell labels of image answers, and version 1 blobs decode with no labels.
//
// # Keys
//
//   - <prefix>:<token> holds the encoded session, TTL = max age
//   - <attemptPrefix>:<token> holds the failed-attempt counter
//
// Attempts live in their own key so concurrent submissions increment atomically instead
// of racing a read-modify-write of the blob.
//
// # What this package must NOT do
//
//   - Import goCaptcha or token (no upward imports).
//   - Decide whether an answer is correct or a session is locked out.
//   - Return a session older than its max age.
package session
