package roads

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	_ "modernc.org/sqlite"

	"github.com/sells-group/orientation-cli/internal/orient"
)

// envelopeSizes maps the GeoPackage header envelope indicator to its byte length.
var envelopeSizes = map[byte]int{0: 0, 1: 32, 2: 48, 3: 48, 4: 64}

// loadGeoPackage reads line geometries from a GeoPackage feature table.
func loadGeoPackage(path string, opts Options) ([]orient.Road, Stats, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, Stats{}, eris.Wrapf(err, "roads: open geopackage %s", path)
	}
	defer db.Close() //nolint:errcheck

	table, column, err := featureTable(db, opts.Layer)
	if err != nil {
		return nil, Stats{}, err
	}

	rows, err := db.Query("SELECT " + quoteIdent(column) + " FROM " + quoteIdent(table))
	if err != nil {
		return nil, Stats{}, eris.Wrapf(err, "roads: query geopackage table %s", table)
	}
	defer rows.Close() //nolint:errcheck

	var (
		roads []orient.Road
		stats Stats
	)
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, stats, eris.Wrap(err, "roads: scan geopackage row")
		}
		stats.Features++

		g, err := decodeGeoPackageBlob(blob)
		if err != nil || g == nil {
			stats.Skipped++
			continue
		}

		var parts int
		roads, parts = collect(roads, strconv.Itoa(stats.Features-1), g, opts.Projector)
		if parts == 0 {
			stats.Skipped++
		}
		stats.Roads += parts
	}
	if err := rows.Err(); err != nil {
		return nil, stats, eris.Wrap(err, "roads: iterate geopackage rows")
	}

	return roads, stats, nil
}

// featureTable resolves the feature table and its geometry column. An empty
// layer selects the first feature table by name.
func featureTable(db *sql.DB, layer string) (string, string, error) {
	query := `
		SELECT c.table_name, g.column_name
		FROM gpkg_contents c
		JOIN gpkg_geometry_columns g ON g.table_name = c.table_name
		WHERE c.data_type = 'features'`
	var args []any
	if layer != "" {
		query += ` AND c.table_name = ?`
		args = append(args, layer)
	}
	query += ` ORDER BY c.table_name LIMIT 1`

	var table, column string
	if err := db.QueryRow(query, args...).Scan(&table, &column); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			if layer != "" {
				return "", "", eris.Errorf("roads: geopackage layer %q not found", layer)
			}
			return "", "", eris.New("roads: geopackage has no feature tables")
		}
		return "", "", eris.Wrap(err, "roads: read geopackage contents")
	}
	return table, column, nil
}

// decodeGeoPackageBlob strips the GeoPackage binary header and decodes the
// WKB body. Empty geometries return nil, nil.
func decodeGeoPackageBlob(b []byte) (geom.T, error) {
	if len(b) < 8 || b[0] != 'G' || b[1] != 'P' {
		return nil, eris.New("roads: not a geopackage geometry")
	}
	flags := b[3]
	if flags&0x10 != 0 {
		return nil, nil
	}
	size, ok := envelopeSizes[(flags>>1)&0x07]
	if !ok {
		return nil, eris.Errorf("roads: invalid geopackage envelope flag %#x", flags)
	}
	if len(b) < 8+size {
		return nil, eris.New("roads: truncated geopackage geometry")
	}
	g, err := wkb.Unmarshal(b[8+size:])
	if err != nil {
		return nil, eris.Wrap(err, "roads: decode geopackage wkb")
	}
	return g, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
