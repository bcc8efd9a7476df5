package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
)

// SessionTokenSize is the number of random bytes behind a session token.
const SessionTokenSize = 32

var errInvalidSessionToken = errors.New("invalid session token")

// NewSessionToken returns 256 bits of crypto/rand output, hex encoded.
func NewSessionToken() (string, error) {
	var raw [SessionTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}

// AssetIDSize is the number of random bytes behind an image cell asset id.
const AssetIDSize = 8

// NewAssetID returns an opaque hex id with no relation to what the asset depicts.
func NewAssetID() (string, error) {
	var raw [AssetIDSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}

// ValidSessionToken reports whether token has the shape produced by NewSessionToken.
// Store lookups are skipped for anything else.
func ValidSessionToken(token string) bool {
	_, err := ParseSessionToken(token)
	return err == nil
}

// ParseSessionToken decodes a hex session token back into its raw bytes.
func ParseSessionToken(token string) ([SessionTokenSize]byte, error) {
	var raw [SessionTokenSize]byte
	if len(token) != hex.EncodedLen(SessionTokenSize) {
		return raw, errInvalidSessionToken
	}
	n, err := hex.Decode(raw[:], []byte(token))
	if err != nil || n != SessionTokenSize {
		return raw, errInvalidSessionToken
	}
	return raw, nil
}

// RandomInt returns a uniform integer in [min, max].
func RandomInt(min, max int) (int, error) {
	if max < min {
		return 0, errors.New("invalid random range")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min)+1))
	if err != nil {
		return 0, err
	}
	return min + int(n.Int64()), nil
}

// Shuffle permutes n elements in place using swap, Fisher-Yates with crypto/rand.
func Shuffle(n int, swap func(i, j int)) error {
	for i := n - 1; i > 0; i-- {
		j, err := RandomInt(0, i)
		if err != nil {
			return err
		}
		swap(i, j)
	}
	return nil
}
