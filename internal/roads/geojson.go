package roads

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/orientation-cli/internal/orient"
)

// loadGeoJSON reads line features from a GeoJSON FeatureCollection.
func loadGeoJSON(path string, opts Options) ([]orient.Road, Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Stats{}, eris.Wrapf(err, "roads: read %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, Stats{}, eris.Wrapf(err, "roads: parse geojson %s", path)
	}

	var (
		roads []orient.Road
		stats Stats
	)
	for i, f := range fc.Features {
		stats.Features++
		if f == nil || f.Geometry == nil {
			stats.Skipped++
			continue
		}

		id := strconv.Itoa(i)
		if f.ID != "" {
			id = f.ID
		} else if name, ok := f.Properties["name"]; ok && name != nil {
			id = fmt.Sprint(name)
		}

		var parts int
		roads, parts = collect(roads, id, f.Geometry, opts.Projector)
		if parts == 0 {
			stats.Skipped++
		}
		stats.Roads += parts
	}

	return roads, stats, nil
}
