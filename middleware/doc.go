// Package middleware exposes net/http middleware that admits only requests carrying a
// valid goCaptcha verification token.
//
// [RequireVerification] reads the token from the X-Captcha-Token header (or an
// "Authorization: Captcha <token>" header), calls Engine.ValidateToken and injects the
// validation into the request context.
//
// # What this package must NOT do
//
//   - Decode tokens itself (delegates to Engine).
//   - Consume or revoke tokens. A token stays usable until it expires.
package middleware
