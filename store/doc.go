// Package store defines the key-value storage contract used by goCaptcha and its
// interchangeable implementations.
//
// # Backends
//
//   - [RedisBackend]: durable, networked store with native TTL and atomic INCR.
//   - [MemoryBackend]: single-process map with lazy expiry and an optional janitor.
//   - [FailoverBackend]: routes to a primary and fails over to a fallback on
//     [ErrUnavailable], probing the primary until it recovers.
//
// The primary and fallback are never merged into one view. Keys written while degraded
// live only in the fallback.
//
// # What this package must NOT do
//
//   - Import goCaptcha, session, or token (no upward imports).
//   - Interpret stored values beyond integer counters and sorted-set scores.
package store
