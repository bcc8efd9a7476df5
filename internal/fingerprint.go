package internal

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint is a one-way digest of a client IP.
type Fingerprint [blake2b.Size256]byte

// FingerprintIP hashes ip with blake2b-256, keyed by salt when one is configured.
// An empty ip hashes the literal "unknown" so missing addresses still bind consistently.
func FingerprintIP(ip string, salt []byte) Fingerprint {
	if ip == "" {
		ip = "unknown"
	}
	if len(salt) > blake2b.Size {
		sum := blake2b.Sum512(salt)
		salt = sum[:]
	}
	h, err := blake2b.New256(salt)
	if err != nil {
		// Only reachable for oversized keys, which are folded above.
		return blake2b.Sum256([]byte(ip))
	}
	_, _ = h.Write([]byte(ip))
	var out Fingerprint
	copy(out[:], h.Sum(nil))
	return out
}

// String returns the hex form used in tokens and logs.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// IsZero reports whether f is unset.
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// ParseFingerprint decodes the hex form produced by String.
func ParseFingerprint(s string) (Fingerprint, bool) {
	var f Fingerprint
	if len(s) != hex.EncodedLen(len(f)) {
		return f, false
	}
	if _, err := hex.Decode(f[:], []byte(s)); err != nil {
		return f, false
	}
	return f, true
}
