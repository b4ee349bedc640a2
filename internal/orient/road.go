package orient

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Point is a property location in the working planar projection (meters).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) coord() geom.Coord { return geom.Coord{p.X, p.Y} }

func (p Point) finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Road is one road polyline in the same projection as the property points.
type Road struct {
	ID     string
	line   *geom.LineString
	bounds *geom.Bounds
}

// NewRoad wraps a line string. A nil line, or one whose flat coordinates do
// not divide into whole vertices, yields a road with no coordinates, which
// never wins a nearest-road search.
func NewRoad(id string, ls *geom.LineString) Road {
	if !wellFormed(ls) {
		return Road{ID: id}
	}
	r := Road{ID: id, line: ls}
	if ls.NumCoords() > 0 {
		r.bounds = ls.Bounds()
	}
	return r
}

func wellFormed(ls *geom.LineString) bool {
	if ls == nil {
		return false
	}
	stride := ls.Stride()
	return stride > 0 && len(ls.FlatCoords())%stride == 0
}

// NewRoadXY builds a road from flat x, y pairs.
func NewRoadXY(id string, flat ...float64) Road {
	return NewRoad(id, geom.NewLineStringFlat(geom.XY, flat))
}

// NumCoords returns the number of vertices on the road.
func (r Road) NumCoords() int {
	if r.line == nil {
		return 0
	}
	return r.line.NumCoords()
}

// Line returns the underlying geometry.
func (r Road) Line() *geom.LineString { return r.line }

// distanceTo returns the minimum distance from c to any point on the road.
// Single-vertex roads measure to that vertex.
func (r Road) distanceTo(c geom.Coord) float64 {
	switch n := r.NumCoords(); {
	case n == 0:
		return math.Inf(1)
	case n == 1:
		v := r.line.Coord(0)
		return math.Hypot(c[0]-v[0], c[1]-v[1])
	default:
		return xy.DistanceFromPointToLineString(r.line.Layout(), c, r.line.FlatCoords())
	}
}

// lowerBound returns the distance from c to the road's bounding box, which
// never exceeds the distance to the road itself.
func (r Road) lowerBound(c geom.Coord) float64 {
	if r.bounds == nil {
		return math.Inf(1)
	}
	dx := math.Max(math.Max(r.bounds.Min(0)-c[0], 0), c[0]-r.bounds.Max(0))
	dy := math.Max(math.Max(r.bounds.Min(1)-c[1], 0), c[1]-r.bounds.Max(1))
	return math.Hypot(dx, dy)
}
