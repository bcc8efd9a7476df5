package internal

import (
	"testing"
)

func TestNewSessionTokenShape(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		tok, err := NewSessionToken()
		if err != nil {
			t.Fatalf("NewSessionToken: %v", err)
		}
		if len(tok) != 64 {
			t.Fatalf("expected 64 hex chars, got %d", len(tok))
		}
		if !ValidSessionToken(tok) {
			t.Fatalf("token %q rejected by ValidSessionToken", tok)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = struct{}{}
	}
}

func TestValidSessionTokenRejectsJunk(t *testing.T) {
	for _, tok := range []string{"", "abc", "zz" + string(make([]byte, 62)), "../../etc/passwd"} {
		if ValidSessionToken(tok) {
			t.Fatalf("expected %q to be rejected", tok)
		}
	}
}

func TestRandomIntBounds(t *testing.T) {
	for i := 0; i < 500; i++ {
		n, err := RandomInt(20, 80)
		if err != nil {
			t.Fatalf("RandomInt: %v", err)
		}
		if n < 20 || n > 80 {
			t.Fatalf("out of range: %d", n)
		}
	}
	if _, err := RandomInt(5, 4); err == nil {
		t.Fatal("expected error for inverted range")
	}
	n, err := RandomInt(7, 7)
	if err != nil || n != 7 {
		t.Fatalf("degenerate range: n=%d err=%v", n, err)
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	xs := []int{0, 1, 2, 3, 4, 5, 6, 7, 8}
	if err := Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] }); err != nil {
		t.Fatalf("Shuffle: %v", err)
	}
	seen := make([]bool, len(xs))
	for _, x := range xs {
		if seen[x] {
			t.Fatalf("duplicate %d after shuffle", x)
		}
		seen[x] = true
	}
}

func FuzzParseSessionToken(f *testing.F) {
	f.Add("")
	f.Add("abc")
	tok, err := NewSessionToken()
	if err == nil {
		f.Add(tok)
	}
	f.Add("!!!not-hex!!!")

	f.Fuzz(func(t *testing.T, input string) {
		raw, err := ParseSessionToken(input)
		if err != nil {
			return
		}
		tok := make([]byte, 0, 64)
		const digits = "0123456789abcdef"
		for _, b := range raw {
			tok = append(tok, digits[b>>4], digits[b&0x0f])
		}
		if _, err := ParseSessionToken(string(tok)); err != nil {
			t.Fatalf("roundtrip failed for %q: %v", input, err)
		}
	})
}
