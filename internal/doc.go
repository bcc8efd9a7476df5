// Package internal contains helper utilities that are intentionally private to goCaptcha,
// including secure random generation and client IP fingerprinting.
//
// # Sub-packages
//
//   - rate: fixed-window per-IP request limiter over a store.Backend
//
// # What this package must NOT do
//
//   - Export types that appear in the public goCaptcha API.
//   - Use math/rand for anything a client could predict.
package internal
