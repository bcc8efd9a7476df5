package challenge

import (
	"fmt"
	"slices"
)

// Answer is the secret expected value of a generated challenge. Exactly one of Text,
// Value and Indices is meaningful, selected by the kind it was generated for.
type Answer struct {
	Text    string
	Value   int
	Indices []int
	// Labels maps image grid cells to what they depict. Only the server knows it.
	Labels []string
}

// Clone returns a deep copy of a.
func (a Answer) Clone() Answer {
	a.Indices = slices.Clone(a.Indices)
	a.Labels = slices.Clone(a.Labels)
	return a
}

// IsZero reports whether a carries no answer at all.
func (a Answer) IsZero() bool {
	return a.Text == "" && a.Value == 0 && len(a.Indices) == 0 && len(a.Labels) == 0
}

// Challenge is the client-facing representation of a puzzle. Exactly one of the
// kind-specific sections is set.
type Challenge struct {
	Kind    Kind              `json:"type"`
	Math    *MathChallenge    `json:"math,omitempty"`
	Image   *ImageChallenge   `json:"image,omitempty"`
	Slider  *SliderChallenge  `json:"slider,omitempty"`
	Pattern *PatternChallenge `json:"pattern,omitempty"`
}

// Options tune generation. Difficulty only affects math.
type Options struct {
	Difficulty int
}

// Generate produces a fresh challenge of kind k.
func Generate(k Kind, opts Options) (Challenge, Answer, error) {
	switch k {
	case KindMath:
		return Math(opts.Difficulty)
	case KindImage:
		return Image()
	case KindSlider:
		return Slider()
	case KindPattern:
		return Pattern()
	}
	return Challenge{}, Answer{}, fmt.Errorf("%w: %s", ErrUnknownKind, k)
}
