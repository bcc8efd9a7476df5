package token

import "errors"

var (
	// ErrMalformed is returned for tokens that cannot be decoded.
	ErrMalformed = errors.New("malformed verification token")
	// ErrExpired is returned once a token is older than the configured TTL.
	ErrExpired = errors.New("verification token expired")
	// ErrSignature is returned by signing codecs when verification fails.
	ErrSignature = errors.New("verification token signature invalid")
	// ErrConfig is returned by NewService for unusable configuration.
	ErrConfig = errors.New("invalid token configuration")
)
