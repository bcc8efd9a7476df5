package challenge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MrEthical07/goCaptcha/internal"
)

// MathChallenge is an arithmetic question.
type MathChallenge struct {
	Question   string `json:"question"`
	Operation  string `json:"operation"`
	Difficulty int    `json:"difficulty"`
}

const (
	mathOperandMax    = 20
	mathMulOperandMax = 10
)

var mathOps = [...]string{"+", "-", "*"}

// Math generates an arithmetic question. Difficulty 0 uses addition only, 1 adds
// subtraction, 2 and above add multiplication. Negative difficulty is treated as 0.
func Math(difficulty int) (Challenge, Answer, error) {
	if difficulty < 0 {
		difficulty = 0
	}
	opCount := difficulty + 1
	if opCount > len(mathOps) {
		opCount = len(mathOps)
	}

	opIdx, err := internal.RandomInt(0, opCount-1)
	if err != nil {
		return Challenge{}, Answer{}, fmt.Errorf("%w: %v", ErrRandom, err)
	}
	op := mathOps[opIdx]

	hi := mathOperandMax
	if op == "*" {
		hi = mathMulOperandMax
	}
	a, err := internal.RandomInt(1, hi)
	if err != nil {
		return Challenge{}, Answer{}, fmt.Errorf("%w: %v", ErrRandom, err)
	}
	b, err := internal.RandomInt(1, hi)
	if err != nil {
		return Challenge{}, Answer{}, fmt.Errorf("%w: %v", ErrRandom, err)
	}

	var result int
	switch op {
	case "+":
		result = a + b
	case "-":
		if b > a {
			a, b = b, a
		}
		result = a - b
	case "*":
		result = a * b
	}

	c := Challenge{
		Kind: KindMath,
		Math: &MathChallenge{
			Question:   fmt.Sprintf("%d %s %d", a, op, b),
			Operation:  op,
			Difficulty: difficulty,
		},
	}
	return c, Answer{Text: strconv.Itoa(result)}, nil
}

func matchMath(expected Answer, sub Submission) bool {
	return strings.EqualFold(strings.TrimSpace(sub.Text), strings.TrimSpace(expected.Text))
}
