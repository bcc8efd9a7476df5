package challenge

import (
	"fmt"
	"strings"
)

// Kind identifies a puzzle type.
type Kind uint8

const (
	KindNone Kind = iota
	KindMath
	KindImage
	KindSlider
	KindPattern
)

var kindNames = [...]string{
	KindNone:    "",
	KindMath:    "math",
	KindImage:   "image",
	KindSlider:  "slider",
	KindPattern: "pattern",
}

// Kinds lists every servable kind.
func Kinds() []Kind {
	return []Kind{KindMath, KindImage, KindSlider, KindPattern}
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the four servable kinds.
func (k Kind) Valid() bool {
	return k >= KindMath && k <= KindPattern
}

// ParseKind maps a kind name to its [Kind].
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "math":
		return KindMath, nil
	case "image":
		return KindImage, nil
	case "slider":
		return KindSlider, nil
	case "pattern":
		return KindPattern, nil
	}
	return KindNone, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if k != KindNone && !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = KindNone
		return nil
	}
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
