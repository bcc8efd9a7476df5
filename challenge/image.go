package challenge

import (
	"fmt"
	"slices"

	"github.com/MrEthical07/goCaptcha/internal"
)

// ImageCell is one tile of an image grid. Asset is a fresh random id per cell that the
// renderer resolves through the server, so the grid alone never says which cells match.
type ImageCell struct {
	Index int    `json:"index"`
	Asset string `json:"asset"`
}

// ImageChallenge asks the client to select every cell showing Category.
type ImageChallenge struct {
	Category    string      `json:"category"`
	Instruction string      `json:"instruction"`
	Grid        []ImageCell `json:"grid"`
}

const (
	imageGridCells  = 9
	imageMinCorrect = 2
	imageMaxCorrect = 3
)

var imageCategories = []string{
	"bicycle",
	"bus",
	"crosswalk",
	"fire hydrant",
	"traffic light",
	"boat",
	"mountain",
	"palm tree",
}

// Image generates a 9-cell grid where 2 or 3 distinct cells depict the chosen category.
// Cell labels stay in the Answer.
func Image() (Challenge, Answer, error) {
	catIdx, err := internal.RandomInt(0, len(imageCategories)-1)
	if err != nil {
		return Challenge{}, Answer{}, fmt.Errorf("%w: %v", ErrRandom, err)
	}
	category := imageCategories[catIdx]

	correct, err := internal.RandomInt(imageMinCorrect, imageMaxCorrect)
	if err != nil {
		return Challenge{}, Answer{}, fmt.Errorf("%w: %v", ErrRandom, err)
	}
	cells, err := distinctCells(imageGridCells, correct)
	if err != nil {
		return Challenge{}, Answer{}, err
	}
	slices.Sort(cells)

	distractors := make([]string, 0, len(imageCategories)-1)
	for _, c := range imageCategories {
		if c != category {
			distractors = append(distractors, c)
		}
	}

	grid := make([]ImageCell, imageGridCells)
	labels := make([]string, imageGridCells)
	for i := range grid {
		asset, err := internal.NewAssetID()
		if err != nil {
			return Challenge{}, Answer{}, fmt.Errorf("%w: %v", ErrRandom, err)
		}
		grid[i] = ImageCell{Index: i, Asset: asset}

		if _, ok := slices.BinarySearch(cells, i); ok {
			labels[i] = category
			continue
		}
		d, err := internal.RandomInt(0, len(distractors)-1)
		if err != nil {
			return Challenge{}, Answer{}, fmt.Errorf("%w: %v", ErrRandom, err)
		}
		labels[i] = distractors[d]
	}

	c := Challenge{
		Kind: KindImage,
		Image: &ImageChallenge{
			Category:    category,
			Instruction: "Select all images containing a " + category,
			Grid:        grid,
		},
	}
	return c, Answer{Indices: cells, Labels: labels}, nil
}

func matchImage(expected Answer, sub Submission) bool {
	if len(sub.Indices) != len(expected.Indices) {
		return false
	}
	got := slices.Clone(sub.Indices)
	want := slices.Clone(expected.Indices)
	slices.Sort(got)
	slices.Sort(want)
	return slices.Equal(got, want)
}

// distinctCells picks n distinct indices from [0, size) in random order.
func distinctCells(size, n int) ([]int, error) {
	pool := make([]int, size)
	for i := range pool {
		pool[i] = i
	}
	if err := internal.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] }); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandom, err)
	}
	return pool[:n], nil
}
