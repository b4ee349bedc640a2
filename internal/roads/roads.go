// Package roads loads road centre-lines from Shapefile, GeoPackage and
// GeoJSON sources and projects them into the working planar grid.
package roads

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/orientation-cli/internal/orient"
	"github.com/sells-group/orientation-cli/internal/projection"
)

// Options configures a road load.
type Options struct {
	Projector projection.Projector // nil = coordinates already projected
	Layer     string               // GeoPackage feature table; empty = first
}

// Stats summarises a load.
type Stats struct {
	Features int // source records read
	Roads    int // line parts produced
	Skipped  int // records with no usable line geometry
}

// supported lists the recognised extensions in lookup order for directories.
var supported = []string{".shp", ".gpkg", ".geojson", ".json"}

// Load reads every line geometry from path. A directory is searched for the
// first supported file, which is how extracted archives are handled. Each
// part of a multi-part line becomes its own road, in source order.
func Load(path string, opts Options) ([]orient.Road, Stats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, Stats{}, eris.Wrapf(err, "roads: stat %s", path)
	}
	if info.IsDir() {
		found, err := findSupported(path)
		if err != nil {
			return nil, Stats{}, err
		}
		path = found
	}

	if opts.Projector == nil {
		opts.Projector = projection.Identity{}
	}

	var (
		roads []orient.Road
		stats Stats
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".shp":
		roads, stats, err = loadShapefile(path, opts)
	case ".gpkg":
		roads, stats, err = loadGeoPackage(path, opts)
	case ".geojson", ".json":
		roads, stats, err = loadGeoJSON(path, opts)
	default:
		return nil, Stats{}, eris.Errorf("roads: unsupported file type %q", ext)
	}
	if err != nil {
		return nil, stats, err
	}

	zap.L().Info("roads loaded",
		zap.String("component", "roads"),
		zap.String("path", path),
		zap.Int("features", stats.Features),
		zap.Int("roads", stats.Roads),
		zap.Int("skipped", stats.Skipped),
	)
	return roads, stats, nil
}

// findSupported finds the first file with a supported extension in a directory.
func findSupported(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "roads: read directory")
	}
	for _, ext := range supported {
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
				return filepath.Join(dir, e.Name()), nil
			}
		}
	}
	return "", eris.Errorf("roads: no road file found in %s", dir)
}

// lineStrings flattens a geometry into its line parts. Non-line geometries
// yield nothing.
func lineStrings(g geom.T) []*geom.LineString {
	switch v := g.(type) {
	case *geom.LineString:
		return []*geom.LineString{v}
	case *geom.MultiLineString:
		out := make([]*geom.LineString, 0, v.NumLineStrings())
		for i := 0; i < v.NumLineStrings(); i++ {
			out = append(out, v.LineString(i))
		}
		return out
	case *geom.GeometryCollection:
		var out []*geom.LineString
		for _, child := range v.Geoms() {
			out = append(out, lineStrings(child)...)
		}
		return out
	default:
		return nil
	}
}

// project returns an XY copy of ls with every vertex passed through p.
func project(ls *geom.LineString, p projection.Projector) *geom.LineString {
	n := ls.NumCoords()
	flat := make([]float64, 0, n*2)
	for i := 0; i < n; i++ {
		c := ls.Coord(i)
		x, y := p.Forward(c[0], c[1])
		flat = append(flat, x, y)
	}
	return geom.NewLineStringFlat(geom.XY, flat)
}

// collect appends one projected road per line part of g.
func collect(dst []orient.Road, id string, g geom.T, p projection.Projector) ([]orient.Road, int) {
	parts := lineStrings(g)
	for i, ls := range parts {
		partID := id
		if len(parts) > 1 {
			partID = id + "." + strconv.Itoa(i)
		}
		dst = append(dst, orient.NewRoad(partID, project(ls, p)))
	}
	return dst, len(parts)
}
