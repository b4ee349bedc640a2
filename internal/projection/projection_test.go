package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Datum shifts between WGS84 and GDA2020/GDA94 are below 2m, so grid checks
// against MGA allow a few meters.
const datumTolerance = 5.0

func TestMGA_CentralMeridianAtEquator(t *testing.T) {
	tm, err := MGA(56)
	require.NoError(t, err)
	assert.Equal(t, 7856, tm.Code)

	x, y := tm.Forward(153, 0)
	assert.InDelta(t, 500000, x, datumTolerance)
	assert.InDelta(t, 10000000, y, datumTolerance)
}

func TestMGA_MeridianArc(t *testing.T) {
	tm, err := MGA(56)
	require.NoError(t, err)

	// GRS80 meridian distance from the equator to 30°S is 3,320,113.4m.
	x, y := tm.Forward(153, -30)
	assert.InDelta(t, 500000, x, datumTolerance)
	assert.InDelta(t, 10000000-0.9996*3320113.4, y, datumTolerance)
}

func TestMGA_SymmetricAboutCentralMeridian(t *testing.T) {
	tm, err := MGA(56)
	require.NoError(t, err)

	xe, ye := tm.Forward(154.2, -33.8)
	xw, yw := tm.Forward(151.8, -33.8)
	assert.InDelta(t, 500000-xw, xe-500000, datumTolerance)
	assert.InDelta(t, ye, yw, datumTolerance)
	assert.Greater(t, xe, 500000.0)
	assert.Less(t, xw, 500000.0)
}

func TestMGA_LocalScale(t *testing.T) {
	tm, err := MGA(55)
	require.NoError(t, err)

	// One thousandth of a degree of longitude at the equator is ~111.32m.
	x0, _ := tm.Forward(147, 0)
	x1, _ := tm.Forward(147.001, 0)
	assert.InDelta(t, 0.9996*111.3195, x1-x0, 0.05)
}

func TestMGA_ZoneRange(t *testing.T) {
	_, err := MGA(48)
	assert.Error(t, err)
	_, err = MGA(59)
	assert.Error(t, err)
}

func TestUTM(t *testing.T) {
	north, err := UTM(33, false)
	require.NoError(t, err)
	assert.Equal(t, 32633, north.Code)
	x, y := north.Forward(15, 0)
	assert.InDelta(t, 500000, x, 1e-3)
	assert.InDelta(t, 0, y, 1e-3)

	south, err := UTM(33, true)
	require.NoError(t, err)
	assert.Equal(t, 32733, south.Code)
	_, y = south.Forward(15, 0)
	assert.InDelta(t, 10000000, y, 1e-3)

	_, err = UTM(0, false)
	assert.Error(t, err)
}

func TestParseEPSG(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"EPSG:7856", 7856, false},
		{"epsg:4326", 4326, false},
		{" 28356 ", 28356, false},
		{"ESRI:102100", 0, true},
		{"EPSG:abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEPSG(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForEPSG(t *testing.T) {
	for _, code := range []int{7856, 7849, 28355, 32633, 32756} {
		tm, err := ForEPSG(code)
		require.NoError(t, err, code)
		assert.Equal(t, code, tm.Code)
		assert.Equal(t, EPSGWGS84, tm.Source)
	}

	_, err := ForEPSG(3857)
	assert.Error(t, err)
}

func TestNew_GDA2020Source(t *testing.T) {
	tm, err := New(EPSGGDA2020, 7856)
	require.NoError(t, err)
	x, y := tm.Forward(153, -30)
	assert.InDelta(t, 500000, x, 1e-3)
	assert.InDelta(t, 10000000-0.9996*3320113.4, y, 0.5)

	_, err = New(7856, 7856)
	assert.Error(t, err)
}

func TestBetween(t *testing.T) {
	p, err := Between("EPSG:7856", "EPSG:7856")
	require.NoError(t, err)
	assert.IsType(t, Identity{}, p)
	x, y := p.Forward(1, 2)
	assert.Equal(t, 1.0, x)
	assert.Equal(t, 2.0, y)

	p, err = Between("EPSG:4326", "EPSG:7856")
	require.NoError(t, err)
	assert.IsType(t, &Transform{}, p)

	_, err = Between("EPSG:28356", "EPSG:7856")
	assert.Error(t, err)

	_, err = Between("nonsense", "EPSG:7856")
	assert.Error(t, err)
}
