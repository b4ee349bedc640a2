// Package property loads sale transactions and GNAF address points and joins
// them into the properties whose orientation is resolved.
package property

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkbhex"
	"go.uber.org/zap"

	"github.com/sells-group/orientation-cli/internal/fetcher"
	"github.com/sells-group/orientation-cli/internal/orient"
	"github.com/sells-group/orientation-cli/internal/projection"
)

// Property is one joined transaction with its projected address point. A nil
// Point means the geometry could not be decoded.
type Property struct {
	Key     string
	Address string
	Point   *orient.Point
}

// Columns names the input columns. Lookups are case-insensitive.
type Columns struct {
	Key      string // join key in both inputs
	Address  string // transactions
	Geometry string // properties, hex (E)WKB point
	X        string // properties fallback when Geometry is absent or blank
	Y        string
}

// DefaultColumns matches the GNAF export layout.
func DefaultColumns() Columns {
	return Columns{Key: "gnaf_pid", Address: "street", Geometry: "geom", X: "x", Y: "y"}
}

// Options configures Load.
type Options struct {
	Columns   Columns
	Projector projection.Projector // nil = points already projected
}

// Stats summarises a load.
type Stats struct {
	Transactions int // transaction rows read
	Locations    int // property rows read
	Joined       int // rows after the inner join
	Unmatched    int // transactions with no location
	BadGeometry  int // joined rows left without a point
}

// transaction is one row of the transactions input.
type transaction struct {
	key     string
	address string
}

// Load reads both inputs and inner-joins them on the key column. The result
// follows transaction order; a transaction matching several locations appears
// once per match, in location order.
func Load(ctx context.Context, transactionsPath, propertiesPath string, opts Options) ([]Property, Stats, error) {
	if opts.Columns == (Columns{}) {
		opts.Columns = DefaultColumns()
	}
	if opts.Projector == nil {
		opts.Projector = projection.Identity{}
	}

	var stats Stats

	txs, err := loadTransactions(ctx, transactionsPath, opts.Columns)
	if err != nil {
		return nil, stats, err
	}
	stats.Transactions = len(txs)

	locs, n, err := loadLocations(ctx, propertiesPath, opts.Columns, opts.Projector)
	if err != nil {
		return nil, stats, err
	}
	stats.Locations = n

	props := make([]Property, 0, len(txs))
	for _, tx := range txs {
		matches, ok := locs[tx.key]
		if !ok || tx.key == "" {
			stats.Unmatched++
			continue
		}
		for _, pt := range matches {
			if pt == nil {
				stats.BadGeometry++
			}
			props = append(props, Property{Key: tx.key, Address: tx.address, Point: pt})
		}
	}
	stats.Joined = len(props)

	zap.L().Info("properties loaded",
		zap.String("component", "property"),
		zap.Int("transactions", stats.Transactions),
		zap.Int("locations", stats.Locations),
		zap.Int("joined", stats.Joined),
		zap.Int("unmatched", stats.Unmatched),
		zap.Int("bad_geometry", stats.BadGeometry),
	)
	return props, stats, nil
}

// Points returns the property points in order, for ResolveAll.
func Points(props []Property) []*orient.Point {
	out := make([]*orient.Point, len(props))
	for i := range props {
		out[i] = props[i].Point
	}
	return out
}

func loadTransactions(ctx context.Context, path string, cols Columns) ([]transaction, error) {
	tbl, err := fetcher.ReadTable(ctx, path)
	if err != nil {
		return nil, eris.Wrap(err, "property: read transactions")
	}
	idx, err := tbl.MustColumns(cols.Key, cols.Address)
	if err != nil {
		return nil, eris.Wrap(err, "property: transactions")
	}

	out := make([]transaction, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		out = append(out, transaction{
			key:     strings.TrimSpace(fetcher.Cell(row, idx[0])),
			address: strings.TrimSpace(fetcher.Cell(row, idx[1])),
		})
	}
	return out, nil
}

// loadLocations reads the properties input into key → points. Rows whose
// geometry cannot be decoded map to a nil point so the join keeps them.
func loadLocations(ctx context.Context, path string, cols Columns, p projection.Projector) (map[string][]*orient.Point, int, error) {
	tbl, err := fetcher.ReadTable(ctx, path)
	if err != nil {
		return nil, 0, eris.Wrap(err, "property: read properties")
	}
	keyIdx, err := tbl.MustColumns(cols.Key)
	if err != nil {
		return nil, 0, eris.Wrap(err, "property: properties")
	}

	geomIdx, hasGeom := tbl.Column(cols.Geometry)
	xIdx, hasX := tbl.Column(cols.X)
	yIdx, hasY := tbl.Column(cols.Y)
	if !hasGeom && !(hasX && hasY) {
		return nil, 0, eris.Errorf("property: properties need column %q or %q/%q", cols.Geometry, cols.X, cols.Y)
	}
	if !hasGeom {
		geomIdx = -1
	}
	if !hasX || !hasY {
		xIdx, yIdx = -1, -1
	}

	out := make(map[string][]*orient.Point, len(tbl.Rows))
	for i, row := range tbl.Rows {
		key := strings.TrimSpace(fetcher.Cell(row, keyIdx[0]))
		pt, err := decodePoint(fetcher.Cell(row, geomIdx), fetcher.Cell(row, xIdx), fetcher.Cell(row, yIdx), p)
		if err != nil {
			zap.L().Debug("property: undecodable geometry",
				zap.Int("row", i+2),
				zap.String("key", key),
				zap.Error(err),
			)
		}
		out[key] = append(out[key], pt)
	}
	return out, len(tbl.Rows), nil
}

// decodePoint parses a hex (E)WKB point, falling back to x/y columns, and
// projects it. It returns a nil point with the reason on failure.
func decodePoint(hex, xs, ys string, p projection.Projector) (*orient.Point, error) {
	if hex = strings.TrimSpace(hex); hex != "" {
		x, y, err := hexPoint(hex)
		if err != nil {
			return nil, err
		}
		px, py := p.Forward(x, y)
		return &orient.Point{X: px, Y: py}, nil
	}

	xs, ys = strings.TrimSpace(xs), strings.TrimSpace(ys)
	if xs == "" || ys == "" {
		return nil, eris.New("property: no geometry")
	}
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return nil, eris.Wrap(err, "property: parse x")
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return nil, eris.Wrap(err, "property: parse y")
	}
	px, py := p.Forward(x, y)
	return &orient.Point{X: px, Y: py}, nil
}

// hexPoint decodes a Point (or the first point of a MultiPoint).
func hexPoint(s string) (float64, float64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "\\x"), "0x")
	g, err := ewkbhex.Decode(s)
	if err != nil {
		return 0, 0, eris.Wrap(err, "property: decode hex wkb")
	}

	switch v := g.(type) {
	case *geom.Point:
		if v.Empty() {
			return 0, 0, eris.New("property: empty point")
		}
		return v.X(), v.Y(), nil
	case *geom.MultiPoint:
		if v.NumPoints() == 0 || v.Point(0).Empty() {
			return 0, 0, eris.New("property: empty multipoint")
		}
		pt := v.Point(0)
		return pt.X(), pt.Y(), nil
	default:
		return 0, 0, eris.Errorf("property: expected point geometry, got %T", g)
	}
}
