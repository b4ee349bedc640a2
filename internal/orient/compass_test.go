package orient

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAngleToCompass(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
		want  Label
	}{
		{"zero is north", 0, North},
		{"just below NE boundary", 22.4999, North},
		{"NE lower bound inclusive", 22.5, NorthEast},
		{"NE centre", 45, NorthEast},
		{"E lower bound", 67.5, East},
		{"E centre", 90, East},
		{"SE lower bound", 112.5, SouthEast},
		{"S lower bound", 157.5, South},
		{"S centre", 180, South},
		{"SW lower bound", 202.5, SouthWest},
		{"W lower bound", 247.5, West},
		{"W centre", 270, West},
		{"NW lower bound", 292.5, NorthWest},
		{"just below N wrap", 337.4999, NorthWest},
		{"N wrap lower bound", 337.5, North},
		{"almost full turn", 359.999, North},
		{"full turn", 360, North},
		{"negative wraps into N", -22.5, North},
		{"negative wraps into NW", -22.6, NorthWest},
		{"over a turn", 405, NorthEast},
		{"NaN", math.NaN(), Unknown},
		{"infinite", math.Inf(1), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AngleToCompass(tt.angle))
		})
	}
}

func TestAngleToCompass_Periodic(t *testing.T) {
	angles := []float64{0, 10.25, 22.5, 45, 67.5, 100.75, 180, 202.5, 300.5, 337.5, 359.5}
	for _, a := range angles {
		want := AngleToCompass(a)
		for n := -3; n <= 3; n++ {
			assert.Equal(t, want, AngleToCompass(a+360*float64(n)), "angle %v turns %d", a, n)
		}
	}
}

func TestLabel_Known(t *testing.T) {
	for _, l := range Labels {
		if l == Unknown {
			assert.False(t, l.Known())
			continue
		}
		assert.True(t, l.Known(), string(l))
	}
	assert.False(t, Label("").Known())
	assert.False(t, Label("north").Known())
}

func TestParseLabel(t *testing.T) {
	l, err := ParseLabel("SW")
	require.NoError(t, err)
	assert.Equal(t, SouthWest, l)

	l, err = ParseLabel("Unknown")
	require.NoError(t, err)
	assert.Equal(t, Unknown, l)

	_, err = ParseLabel("SSW")
	assert.Error(t, err)
}

func TestHouseAngle(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy float64
		want   float64
	}{
		{"road heading +y", 0, 100, 90},
		{"road heading +x", 100, 0, 180},
		{"road heading -y", 0, -100, 270},
		{"road heading -x", -100, 0, 0},
		{"road heading +x+y", 100, 100, 135},
		{"road heading -x-y", -100, -100, 315},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, HouseAngle(tt.dx, tt.dy), 1e-9)
		})
	}
}
