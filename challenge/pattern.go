package challenge

import (
	"fmt"
	"slices"

	"github.com/MrEthical07/goCaptcha/internal"
)

// PatternChallenge reveals only the grid and how many cells to trace.
type PatternChallenge struct {
	GridSize    int    `json:"gridSize"`
	Length      int    `json:"length"`
	Instruction string `json:"instruction"`
}

const (
	patternGridSize  = 3
	patternMinLength = 4
	patternMaxLength = 5
)

// Pattern generates an ordered sequence of 4 or 5 distinct cells on a 3x3 grid.
func Pattern() (Challenge, Answer, error) {
	length, err := internal.RandomInt(patternMinLength, patternMaxLength)
	if err != nil {
		return Challenge{}, Answer{}, fmt.Errorf("%w: %v", ErrRandom, err)
	}
	seq, err := distinctCells(patternGridSize*patternGridSize, length)
	if err != nil {
		return Challenge{}, Answer{}, err
	}

	c := Challenge{
		Kind: KindPattern,
		Pattern: &PatternChallenge{
			GridSize:    patternGridSize,
			Length:      length,
			Instruction: fmt.Sprintf("Repeat the %d-step pattern on the %dx%d grid", length, patternGridSize, patternGridSize),
		},
	}
	return c, Answer{Indices: slices.Clone(seq)}, nil
}

func matchPattern(expected Answer, sub Submission) bool {
	return slices.Equal(sub.Indices, expected.Indices)
}
