// Package orient infers the compass direction a property faces from the
// bearing of its nearest road, and fills part of the unresolved results with
// the dominant orientation of the resolved ones.
package orient

import (
	"math"

	"github.com/rotisserie/eris"
)

// Label is a compass orientation assigned to a property.
type Label string

// Orientation labels.
const (
	North     Label = "N"
	NorthEast Label = "NE"
	East      Label = "E"
	SouthEast Label = "SE"
	South     Label = "S"
	SouthWest Label = "SW"
	West      Label = "W"
	NorthWest Label = "NW"
	Unknown   Label = "Unknown"
)

// Labels lists every label in report order.
var Labels = []Label{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest, Unknown}

// Known reports whether l is a concrete compass direction.
func (l Label) Known() bool {
	switch l {
	case North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest:
		return true
	}
	return false
}

// ParseLabel converts a stored label back into a Label.
func ParseLabel(s string) (Label, error) {
	for _, l := range Labels {
		if string(l) == s {
			return l, nil
		}
	}
	return "", eris.Errorf("orient: unknown label %q", s)
}

// sectors holds the half-open [from, to) ranges for every direction except
// north, which owns the wraparound [337.5, 360) ∪ [0, 22.5).
var sectors = []struct {
	from, to float64
	label    Label
}{
	{22.5, 67.5, NorthEast},
	{67.5, 112.5, East},
	{112.5, 157.5, SouthEast},
	{157.5, 202.5, South},
	{202.5, 247.5, SouthWest},
	{247.5, 292.5, West},
	{292.5, 337.5, NorthWest},
}

// AngleToCompass maps a bearing in degrees to one of eight 45° sectors.
// The angle is normalised into [0, 360) first, so any multiple of 360 may be
// added without changing the result. Non-finite angles map to Unknown.
func AngleToCompass(angle float64) Label {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return Unknown
	}
	a := normalizeDegrees(angle)
	for _, s := range sectors {
		if a >= s.from && a < s.to {
			return s.label
		}
	}
	return North
}

// normalizeDegrees folds an angle into [0, 360).
func normalizeDegrees(angle float64) float64 {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a -= 360
	}
	return a
}
