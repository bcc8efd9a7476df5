package challenge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type shape uint8

const (
	shapeNone shape = iota
	shapeText
	shapeNumber
	shapeIndices
)

// Submission is a client answer. Build one with [TextAnswer], [PositionAnswer],
// [IndexAnswer] or [ParseSubmission].
type Submission struct {
	Text    string
	Number  int
	Indices []int
	shape   shape
}

// TextAnswer builds a math submission.
func TextAnswer(s string) Submission {
	return Submission{Text: s, shape: shapeText}
}

// PositionAnswer builds a slider submission.
func PositionAnswer(pos int) Submission {
	return Submission{Number: pos, shape: shapeNumber}
}

// IndexAnswer builds an image or pattern submission.
func IndexAnswer(indices ...int) Submission {
	return Submission{Indices: append([]int(nil), indices...), shape: shapeIndices}
}

// Empty reports whether s carries no answer.
func (s Submission) Empty() bool {
	return s.shape == shapeNone
}

// Fits reports whether s has the shape kind k expects.
func (s Submission) Fits(k Kind) bool {
	switch k {
	case KindMath:
		return s.shape == shapeText
	case KindSlider:
		return s.shape == shapeNumber
	case KindImage, KindPattern:
		return s.shape == shapeIndices
	}
	return false
}

// ParseSubmission decodes a JSON answer for kind k. Math accepts a string or a number,
// slider a number (rounded to the nearest integer), image and pattern an array of
// integers. Anything else is [ErrMalformedAnswer].
func ParseSubmission(k Kind, raw json.RawMessage) (Submission, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Submission{}, fmt.Errorf("%w: missing answer", ErrMalformedAnswer)
	}

	switch k {
	case KindMath:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return TextAnswer(s), nil
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return TextAnswer(n.String()), nil
		}
		return Submission{}, fmt.Errorf("%w: math answer must be a string or number", ErrMalformedAnswer)

	case KindSlider:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return Submission{}, fmt.Errorf("%w: slider answer must be a number", ErrMalformedAnswer)
			}
			if f, err = strconv.ParseFloat(s, 64); err != nil {
				return Submission{}, fmt.Errorf("%w: slider answer must be a number", ErrMalformedAnswer)
			}
		}
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
			return Submission{}, fmt.Errorf("%w: slider position out of range", ErrMalformedAnswer)
		}
		return PositionAnswer(int(math.Round(f))), nil

	case KindImage, KindPattern:
		var xs []int
		if err := json.Unmarshal(raw, &xs); err != nil {
			return Submission{}, fmt.Errorf("%w: %s answer must be an array of integers", ErrMalformedAnswer, k)
		}
		return IndexAnswer(xs...), nil
	}
	return Submission{}, fmt.Errorf("%w: %s", ErrUnknownKind, k)
}

// Match compares sub against the expected answer for kind k. tolerance applies to
// slider only; a negative value selects [DefaultSliderTolerance].
func Match(k Kind, expected Answer, sub Submission, tolerance int) (bool, error) {
	if !k.Valid() {
		return false, fmt.Errorf("%w: %s", ErrUnknownKind, k)
	}
	if !sub.Fits(k) {
		return false, fmt.Errorf("%w: answer shape does not fit %s", ErrMalformedAnswer, k)
	}
	switch k {
	case KindMath:
		return matchMath(expected, sub), nil
	case KindImage:
		return matchImage(expected, sub), nil
	case KindSlider:
		return matchSlider(expected, sub, tolerance), nil
	default:
		return matchPattern(expected, sub), nil
	}
}
