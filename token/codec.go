package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Payload is the content of a verification token.
type Payload struct {
	SessionToken  string `json:"sid"`
	MintedAt      int64  `json:"mat"`
	IPFingerprint string `json:"ipf,omitempty"`
}

// Minted returns MintedAt as a time.
func (p Payload) Minted() time.Time {
	return time.UnixMilli(p.MintedAt)
}

// Codec turns a payload into a token string and back.
type Codec interface {
	Name() string
	Encode(Payload) (string, error)
	Decode(string) (Payload, error)
}

// Codec names accepted by Config.Encoding.
const (
	EncodingPlain = "plain"
	EncodingHS256 = "hs256"
)

// PlainCodec is unpadded base64url over JSON. It is not signed.
type PlainCodec struct{}

func (PlainCodec) Name() string { return EncodingPlain }

func (PlainCodec) Encode(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func (PlainCodec) Decode(s string) (Payload, error) {
	var p Payload
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.SessionToken == "" || p.MintedAt <= 0 {
		return p, fmt.Errorf("%w: missing fields", ErrMalformed)
	}
	return p, nil
}

type hs256Claims struct {
	SID string `json:"sid"`
	MAT int64  `json:"mat"`
	IPF string `json:"ipf,omitempty"`
	jwt.RegisteredClaims
}

// HS256Codec signs the payload as an HMAC-SHA256 JWT.
type HS256Codec struct {
	key    []byte
	issuer string
}

// NewHS256Codec creates an [HS256Codec]. The key must be at least 32 bytes.
func NewHS256Codec(key []byte, issuer string) (*HS256Codec, error) {
	if len(key) < 32 {
		return nil, fmt.Errorf("%w: hs256 requires a signing key of at least 32 bytes", ErrConfig)
	}
	return &HS256Codec{key: append([]byte(nil), key...), issuer: issuer}, nil
}

func (c *HS256Codec) Name() string { return EncodingHS256 }

func (c *HS256Codec) Encode(p Payload) (string, error) {
	claims := hs256Claims{
		SID: p.SessionToken,
		MAT: p.MintedAt,
		IPF: p.IPFingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(p.Minted()),
			Issuer:   c.issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

func (c *HS256Codec) Decode(s string) (Payload, error) {
	// Lifetime is checked by the Service against its own clock.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	claims := &hs256Claims{}
	_, err := parser.ParseWithClaims(s, claims, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Payload{}, fmt.Errorf("%w: %v", ErrSignature, err)
		}
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return Payload{}, fmt.Errorf("%w: unexpected issuer %q", ErrMalformed, claims.Issuer)
	}
	if claims.SID == "" || claims.MAT <= 0 {
		return Payload{}, fmt.Errorf("%w: missing fields", ErrMalformed)
	}
	return Payload{SessionToken: claims.SID, MintedAt: claims.MAT, IPFingerprint: claims.IPF}, nil
}
