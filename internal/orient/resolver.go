package orient

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Resolver defaults.
const (
	// SearchRadiusMeters is the largest nearest-road distance that still
	// yields an orientation; farther properties resolve to Unknown.
	SearchRadiusMeters = 3000.0

	// ChordIndexCap caps the vertex index used as the far end of the bearing
	// chord. Longer chords smooth out small kinks near the road start.
	ChordIndexCap = 10

	// MinChordComponent is the per-axis length (meters) the chord must exceed
	// on at least one axis for its bearing to be trusted.
	MinChordComponent = 1.0
)

// Params tunes the resolver.
type Params struct {
	SearchRadius      float64
	ChordIndexCap     int
	MinChordComponent float64
}

// DefaultParams returns the production resolver parameters.
func DefaultParams() Params {
	return Params{
		SearchRadius:      SearchRadiusMeters,
		ChordIndexCap:     ChordIndexCap,
		MinChordComponent: MinChordComponent,
	}
}

// Reason explains why a property did not resolve to a compass direction.
type Reason string

// Unresolved reasons. Everything except ReasonOutOfRadius is a geometry fault.
const (
	ReasonNoPoint         Reason = "no_point"
	ReasonNonFinite       Reason = "non_finite"
	ReasonNoRoads         Reason = "no_roads"
	ReasonOutOfRadius     Reason = "out_of_radius"
	ReasonShortRoad       Reason = "short_road"
	ReasonDegenerateChord Reason = "degenerate_chord"
	ReasonPanic           Reason = "panic"
)

// Outcome is the detailed result of resolving one property. Exactly one of
// Label or Reason is meaningful: a non-empty Reason means the property is
// unresolved and collapses to Unknown.
type Outcome struct {
	Label       Label
	Reason      Reason
	Road        int     // index of the nearest road, -1 when none was found
	Distance    float64 // NaN when no road was measured
	HouseAngle  float64 // NaN unless resolved
	FaultDetail string
}

// Resolved reports whether the outcome carries a compass direction.
func (o Outcome) Resolved() bool { return o.Reason == "" }

// Orientation collapses the outcome to a label.
func (o Outcome) Orientation() Label {
	if !o.Resolved() {
		return Unknown
	}
	return o.Label
}

func unresolved(reason Reason) Outcome {
	return Outcome{Reason: reason, Road: -1, Distance: math.NaN(), HouseAngle: math.NaN()}
}

// Resolver finds the nearest road to a property and turns its bearing into a
// facing direction. It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	roads  []Road
	params Params
}

// NewResolver creates a Resolver over roads. Zero-valued params fall back to
// the defaults.
func NewResolver(roads []Road, params Params) *Resolver {
	if params.SearchRadius <= 0 {
		params.SearchRadius = SearchRadiusMeters
	}
	if params.ChordIndexCap < 1 {
		params.ChordIndexCap = ChordIndexCap
	}
	if params.MinChordComponent <= 0 {
		params.MinChordComponent = MinChordComponent
	}
	return &Resolver{roads: roads, params: params}
}

// Roads returns the number of roads searched.
func (r *Resolver) Roads() int { return len(r.roads) }

// Resolve returns the orientation for a single property point using the
// default parameters.
func Resolve(p Point, roads []Road) Label {
	return NewResolver(roads, DefaultParams()).Resolve(&p)
}

// Resolve returns the orientation for p, or Unknown when it cannot be inferred.
func (r *Resolver) Resolve(p *Point) Label {
	return r.Outcome(p).Orientation()
}

// Outcome resolves p and reports why it failed when it did. It never panics.
func (r *Resolver) Outcome(p *Point) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = unresolved(ReasonPanic)
			out.FaultDetail = fmt.Sprint(rec)
			zap.L().Debug("orient: recovered geometry fault", zap.Any("panic", rec))
		}
	}()

	if p == nil {
		return unresolved(ReasonNoPoint)
	}
	if !p.finite() {
		return unresolved(ReasonNonFinite)
	}

	idx, dist := r.nearest(p.coord())
	if idx < 0 {
		return unresolved(ReasonNoRoads)
	}

	out = unresolved(ReasonOutOfRadius)
	out.Road = idx
	out.Distance = dist
	if dist > r.params.SearchRadius {
		return out
	}

	road := r.roads[idx]
	n := road.NumCoords()
	if n < 2 {
		out.Reason = ReasonShortRoad
		return out
	}

	start := road.line.Coord(0)
	end := road.line.Coord(min(r.params.ChordIndexCap, n-1))
	dx := end[0] - start[0]
	dy := end[1] - start[1]
	if math.Abs(dx) <= r.params.MinChordComponent && math.Abs(dy) <= r.params.MinChordComponent {
		out.Reason = ReasonDegenerateChord
		return out
	}

	house := HouseAngle(dx, dy)
	label := AngleToCompass(house)
	if label == Unknown {
		out.Reason = ReasonNonFinite
		return out
	}

	out.Reason = ""
	out.Label = label
	out.HouseAngle = house
	return out
}

// HouseAngle converts a road chord into the bearing the property faces.
// The road bearing is atan2(dx, dy), measured clockwise from +y, and the
// property is taken to face 90° clockwise of it.
func HouseAngle(dx, dy float64) float64 {
	road := math.Atan2(dx, dy) * 180 / math.Pi
	return normalizeDegrees(road + 90)
}

// nearest returns the index of the closest road and its distance, or -1 when
// no road has coordinates. Exact ties keep the earliest road.
func (r *Resolver) nearest(c geom.Coord) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for i, road := range r.roads {
		if road.lowerBound(c) > bestDist {
			continue
		}
		d := road.distanceTo(c)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}
