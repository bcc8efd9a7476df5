// Package token mints and validates the verification tokens handed out after a solved
// challenge.
//
// Two codecs are available. The default "plain" codec is unpadded base64url over a JSON
// payload; it is reversible and unsigned, so any holder can read it and anyone could forge
// one. The opt-in "hs256" codec carries the same payload as an HMAC-SHA256 JWT.
//
// Expiry is always enforced here against the service clock, never by the codec, so both
// codecs share the same lifetime rule: a token is expired once more than TTL has passed
// since it was minted.
//
// # What this package must NOT do
//
//   - Reject a token only because the presenting IP differs from the minting IP.
//   - Look up sessions; a token stands alone once minted.
package token
