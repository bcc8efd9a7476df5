// Package rate provides the fixed-window request limiter used to cap verification
// attempts per client IP.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. The window is never
// extended by later hits and counts are never refunded; only expiry resets a window.
// Keys are "<prefix>:<ip>", default prefix "crl".
//
// # What this package must NOT do
//
//   - Read a counter and write it back; every hit is a single atomic increment.
//   - Be imported outside the goCaptcha module.
package rate
