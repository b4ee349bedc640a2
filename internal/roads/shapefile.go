package roads

import (
	"strconv"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/orientation-cli/internal/orient"
)

// loadShapefile reads PolyLine records from a shapefile.
func loadShapefile(path string, opts Options) ([]orient.Road, Stats, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, Stats{}, eris.Wrapf(err, "roads: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	var (
		roads []orient.Road
		stats Stats
	)
	for reader.Next() {
		n, shape := reader.Shape()
		stats.Features++

		g := shapeToGeom(shape)
		if g == nil {
			stats.Skipped++
			continue
		}

		var parts int
		roads, parts = collect(roads, strconv.Itoa(n), g, opts.Projector)
		stats.Roads += parts
	}

	if stats.Skipped > 0 {
		zap.L().Debug("roads: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", stats.Skipped),
		)
	}
	return roads, stats, nil
}

// shapeToGeom converts the line shape types to a MultiLineString. Other
// shape types return nil.
func shapeToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.PolyLine:
		return partsToMultiLineString(s.NumParts, s.Parts, s.Points)
	case *shp.PolyLineZ:
		return partsToMultiLineString(s.NumParts, s.Parts, s.Points)
	case *shp.PolyLineM:
		return partsToMultiLineString(s.NumParts, s.Parts, s.Points)
	default:
		return nil
	}
}

// partsToMultiLineString splits a shapefile point array at the part offsets.
func partsToMultiLineString(numParts int32, parts []int32, points []shp.Point) geom.T {
	if numParts == 0 || len(points) == 0 || len(parts) < int(numParts) {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY)
	for i := int32(0); i < numParts; i++ {
		start := parts[i]
		end := int32(len(points))
		if i+1 < numParts {
			end = parts[i+1]
		}
		if start < 0 || start >= end || int(end) > len(points) {
			zap.L().Debug("roads: skipping malformed shapefile part", zap.Int32("part", i))
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, points[j].X, points[j].Y)
		}
		if err := mls.Push(geom.NewLineStringFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("roads: skipping malformed linestring part", zap.Int32("part", i), zap.Error(err))
		}
	}

	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}
