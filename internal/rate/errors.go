package rate

import "errors"

var (
	// ErrRateLimited is returned by Allow when the caller has exhausted its window.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps backend failures seen while counting.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)
