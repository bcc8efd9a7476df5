package challenge

import (
	"fmt"

	"github.com/MrEthical07/goCaptcha/internal"
)

// SliderChallenge describes the track; the target stays server side.
type SliderChallenge struct {
	Min         int    `json:"min"`
	Max         int    `json:"max"`
	Instruction string `json:"instruction"`
}

const (
	sliderMin       = 0
	sliderMax       = 100
	sliderTargetMin = 20
	sliderTargetMax = 80

	// DefaultSliderTolerance is the accepted distance from the target.
	DefaultSliderTolerance = 5
)

// Slider generates a target uniformly in [20,80].
func Slider() (Challenge, Answer, error) {
	target, err := internal.RandomInt(sliderTargetMin, sliderTargetMax)
	if err != nil {
		return Challenge{}, Answer{}, fmt.Errorf("%w: %v", ErrRandom, err)
	}
	c := Challenge{
		Kind: KindSlider,
		Slider: &SliderChallenge{
			Min:         sliderMin,
			Max:         sliderMax,
			Instruction: "Drag the slider to complete the puzzle",
		},
	}
	return c, Answer{Value: target}, nil
}

func matchSlider(expected Answer, sub Submission, tolerance int) bool {
	if tolerance < 0 {
		tolerance = DefaultSliderTolerance
	}
	d := sub.Number - expected.Value
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}
