package multires

import "fmt"

// MaxLevels is the hard cap on stored multires levels.
const MaxLevels = 13

// Grid sample counts and side lengths per level. A level L >= 1 grid is one face
// corner subdivided L-1 times: side 2^(L-1)+1. Level 0 carries no grid.
var (
	gridArea = [MaxLevels + 1]int{0, 4, 9, 25, 81, 289, 1089, 4225, 16641, 66049, 263169, 1050625, 4198401, 16785409}
	gridSide = [MaxLevels + 1]int{0, 2, 3, 5, 9, 17, 33, 65, 129, 257, 513, 1025, 2049, 4097}
)

func checkLevel(level int) {
	if level < 0 || level > MaxLevels {
		panic(fmt.Sprintf("multires: level %d outside 0..%d", level, MaxLevels))
	}
}

// GridSize returns the grid side length at level. Panics outside 0..MaxLevels.
func GridSize(level int) int {
	checkLevel(level)
	return gridSide[level]
}

// GridArea returns the number of samples of a grid at level. Panics outside 0..MaxLevels.
func GridArea(level int) int {
	checkLevel(level)
	return gridArea[level]
}

// Factor is the stride between samples of the lo grid inside the hi grid.
func Factor(lo, hi int) (int, error) {
	if lo > hi {
		return 0, &DomainError{Lo: lo, Hi: hi, Reason: "low level above high level"}
	}
	if lo < 1 || hi > MaxLevels {
		return 0, &DomainError{Lo: lo, Hi: hi, Reason: "level has no grid"}
	}
	num, den := gridSide[hi]-1, gridSide[lo]-1
	if num%den != 0 {
		return 0, &DomainError{Lo: lo, Hi: hi, Reason: fmt.Sprintf("side %d does not nest in %d", gridSide[lo], gridSide[hi])}
	}
	return num / den, nil
}

// mustFactor is Factor for callers that already validated their levels.
func mustFactor(lo, hi int) int {
	f, err := Factor(lo, hi)
	if err != nil {
		panic(err)
	}
	return f
}

// LevelFromArea maps a sample count back to its level.
func LevelFromArea(totdisp int) (int, bool) {
	for l := 1; l <= MaxLevels; l++ {
		if gridArea[l] == totdisp {
			return l, true
		}
	}
	return 0, false
}
