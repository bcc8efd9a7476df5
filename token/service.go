package token

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTTL = time.Hour
	// A token minted further in the future than this is treated as forged.
	maxFutureMint = time.Minute
)

// Config selects the codec and lifetime.
type Config struct {
	TTL        time.Duration
	Encoding   string
	SigningKey []byte
	Issuer     string
}

// Validation is the outcome of [Service.Validate].
type Validation struct {
	Valid      bool
	Payload    Payload
	IPMismatch bool
	Err        error
}

// Service mints and validates verification tokens.
type Service struct {
	codec  Codec
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewService builds a [Service]. A nil logger or clock falls back to a no-op logger and
// time.Now.
func NewService(cfg Config, logger *zap.Logger, now func() time.Time) (*Service, error) {
	if cfg.TTL == 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrConfig)
	}

	var codec Codec
	switch cfg.Encoding {
	case "", EncodingPlain:
		codec = PlainCodec{}
	case EncodingHS256:
		c, err := NewHS256Codec(cfg.SigningKey, cfg.Issuer)
		if err != nil {
			return nil, err
		}
		codec = c
	default:
		return nil, fmt.Errorf("%w: unknown encoding %q", ErrConfig, cfg.Encoding)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{codec: codec, ttl: cfg.TTL, logger: logger, now: now}, nil
}

// Codec returns the name of the active codec.
func (s *Service) Codec() string { return s.codec.Name() }

// TTL returns the token lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Mint issues a token for a solved session.
func (s *Service) Mint(sessionToken, ipFingerprint string) (string, Payload, error) {
	p := Payload{
		SessionToken:  sessionToken,
		MintedAt:      s.now().UnixMilli(),
		IPFingerprint: ipFingerprint,
	}
	tok, err := s.codec.Encode(p)
	if err != nil {
		return "", Payload{}, err
	}
	return tok, p, nil
}

// Validate decodes tok and checks its age. ipFingerprint is compared with the minting
// fingerprint; a mismatch is logged and reported but does not invalidate the token.
func (s *Service) Validate(tok, ipFingerprint string) Validation {
	if tok == "" {
		return Validation{Err: fmt.Errorf("%w: empty token", ErrMalformed)}
	}
	p, err := s.codec.Decode(tok)
	if err != nil {
		return Validation{Err: err}
	}

	now := s.now()
	minted := p.Minted()
	if minted.After(now.Add(maxFutureMint)) {
		return Validation{Payload: p, Err: fmt.Errorf("%w: minted in the future", ErrMalformed)}
	}
	if now.Sub(minted) > s.ttl {
		return Validation{Payload: p, Err: ErrExpired}
	}

	v := Validation{Valid: true, Payload: p}
	if ipFingerprint != "" && p.IPFingerprint != "" && ipFingerprint != p.IPFingerprint {
		v.IPMismatch = true
		s.logger.Warn("verification token presented from a different ip",
			zap.String("codec", s.codec.Name()),
			zap.Time("minted_at", minted))
	}
	return v
}

// Message maps a validation error to the client-facing text.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExpired):
		return "Token expired"
	default:
		return "Invalid token"
	}
}
