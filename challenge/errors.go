package challenge

import "errors"

var (
	// ErrUnknownKind is returned for kind names or values outside the four puzzle kinds.
	ErrUnknownKind = errors.New("unknown captcha type")
	// ErrMalformedAnswer is returned when a submission does not have the shape its kind requires.
	ErrMalformedAnswer = errors.New("malformed answer")
	// ErrRandom wraps crypto/rand failures during generation.
	ErrRandom = errors.New("challenge randomness unavailable")
)
