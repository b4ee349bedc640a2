// Package projection converts geographic longitude/latitude into the planar
// Transverse Mercator grids (MGA, UTM) used for distance calculations.
package projection

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/wroge/wgs84"
)

// EPSG codes handled directly.
const (
	EPSGWGS84   = 4326
	EPSGGDA2020 = 7844
	EPSGGDA94   = 4283
)

// Projector maps longitude/latitude degrees to planar x/y.
type Projector interface {
	Forward(lon, lat float64) (x, y float64)
}

// Identity leaves coordinates untouched; used when the inputs are already
// projected.
type Identity struct{}

// Forward returns its input.
func (Identity) Forward(x, y float64) (float64, float64) { return x, y }

// Transform projects from a geographic CRS to a supported grid.
type Transform struct {
	Source int
	Code   int
	fn     func(a, b, c float64) (float64, float64, float64)
}

// Forward projects longitude/latitude degrees to easting/northing meters.
func (t *Transform) Forward(lon, lat float64) (float64, float64) {
	x, y, _ := t.fn(lon, lat, 0)
	return x, y
}

// New returns the transform between two EPSG codes. The source must be
// geographic and the target one of the grids accepted by ForEPSG.
func New(source, target int) (*Transform, error) {
	if !geographic(source) {
		return nil, eris.Errorf("projection: cannot reproject from EPSG:%d, source must be geographic", source)
	}
	if !supportedTarget(target) {
		return nil, eris.Errorf("projection: unsupported target EPSG:%d", target)
	}
	return &Transform{
		Source: source,
		Code:   target,
		fn:     wgs84.Transform(wgs84.EPSG().Code(source), wgs84.EPSG().Code(target)),
	}, nil
}

// MGA returns the GDA2020 Map Grid of Australia projection for a zone (49-58).
func MGA(zone int) (*Transform, error) {
	if zone < 49 || zone > 58 {
		return nil, eris.Errorf("projection: MGA zone %d out of range 49-58", zone)
	}
	return New(EPSGWGS84, 7800+zone)
}

// UTM returns a WGS84 UTM projection for a zone (1-60).
func UTM(zone int, south bool) (*Transform, error) {
	if zone < 1 || zone > 60 {
		return nil, eris.Errorf("projection: UTM zone %d out of range 1-60", zone)
	}
	code := 32600 + zone
	if south {
		code = 32700 + zone
	}
	return New(EPSGWGS84, code)
}

// ForEPSG returns the projection from WGS84 to a target EPSG code.
func ForEPSG(code int) (*Transform, error) {
	return New(EPSGWGS84, code)
}

// ParseEPSG accepts "EPSG:7856", "epsg:7856" or "7856".
func ParseEPSG(s string) (int, error) {
	v := strings.TrimSpace(s)
	if i := strings.IndexByte(v, ':'); i >= 0 {
		if !strings.EqualFold(v[:i], "epsg") {
			return 0, eris.Errorf("projection: unsupported authority in %q", s)
		}
		v = v[i+1:]
	}
	code, err := strconv.Atoi(v)
	if err != nil {
		return 0, eris.Wrapf(err, "projection: parse EPSG code %q", s)
	}
	return code, nil
}

// geographic reports whether the code is a lon/lat CRS this package accepts
// as a source.
func geographic(code int) bool {
	return code == EPSGWGS84 || code == EPSGGDA2020 || code == EPSGGDA94
}

// supportedTarget reports whether code is a GDA2020 MGA, GDA94 MGA or WGS84
// UTM grid.
func supportedTarget(code int) bool {
	switch {
	case code >= 7849 && code <= 7858,
		code >= 28349 && code <= 28358,
		code >= 32601 && code <= 32660,
		code >= 32701 && code <= 32760:
		return true
	}
	return false
}

// Between returns the projector from source to target CRS strings. Equal
// codes give Identity; otherwise the source must be geographic.
func Between(source, target string) (Projector, error) {
	src, err := ParseEPSG(source)
	if err != nil {
		return nil, err
	}
	dst, err := ParseEPSG(target)
	if err != nil {
		return nil, err
	}
	if src == dst {
		return Identity{}, nil
	}
	return New(src, dst)
}
