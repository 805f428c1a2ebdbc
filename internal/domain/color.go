package domain

import "fmt"

// NeutralColor marks a region whose cases are all resolved or that has none.
const NeutralColor = "rgb(255,255,255)"

// Band thresholds on the unresolved fraction.
const (
	redThreshold    = 0.5
	orangeThreshold = 0.3
	colorCeiling    = 128
)

// UnresolvedFactor returns (confirmed-recovered)/confirmed clamped to [0,1],
// or 0 when confirmed is not positive.
func UnresolvedFactor(confirmed, recovered int64) float64 {
	if confirmed <= 0 {
		return 0
	}
	f := float64(confirmed-recovered) / float64(confirmed)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// ColorFor returns the display color for one region on one day.
func ColorFor(confirmed, recovered int64) string {
	factor := UnresolvedFactor(confirmed, recovered)
	c := int(factor * colorCeiling)
	switch {
	case factor == 0:
		return NeutralColor
	case factor > redThreshold:
		return fmt.Sprintf("rgb(255,%d,%d)", 255-c, 255-c)
	case factor > orangeThreshold:
		return fmt.Sprintf("rgb(255,%d,160)", 160+c)
	default:
		return fmt.Sprintf("rgb(%d,255,%d)", 160+c, 160+c)
	}
}
