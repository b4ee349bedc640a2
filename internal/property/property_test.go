package property

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkbhex"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/sells-group/orientation-cli/internal/orient"
	"github.com/sells-group/orientation-cli/internal/projection"
)

func hexPointOf(t *testing.T, x, y float64) string {
	t.Helper()
	s, err := ewkbhex.Encode(geom.NewPointFlat(geom.XY, []float64{x, y}).SetSRID(4326), binary.LittleEndian)
	require.NoError(t, err)
	return s
}

func writeCSV(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestLoad_InnerJoinKeepsTransactionOrder(t *testing.T) {
	dir := t.TempDir()
	tx := writeCSV(t, dir, "transactions.csv",
		"gnaf_pid,street,price",
		"B,2 Low St,100",
		"A,1 High St,200",
		"Z,9 Nowhere Rd,300",
		"B,2 Low St,150",
	)
	props := writeCSV(t, dir, "gnaf_prop.csv",
		"gnaf_pid,geom",
		"A,"+hexPointOf(t, 10, 20),
		"B,"+hexPointOf(t, 30, 40),
	)

	got, stats, err := Load(context.Background(), tx, props, Options{})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, Property{Key: "B", Address: "2 Low St", Point: &orient.Point{X: 30, Y: 40}}, got[0])
	assert.Equal(t, Property{Key: "A", Address: "1 High St", Point: &orient.Point{X: 10, Y: 20}}, got[1])
	assert.Equal(t, "B", got[2].Key)
	assert.Equal(t, Stats{Transactions: 4, Locations: 2, Joined: 3, Unmatched: 1}, stats)
}

func TestLoad_ManyToMany(t *testing.T) {
	dir := t.TempDir()
	tx := writeCSV(t, dir, "transactions.csv", "gnaf_pid,street", "A,1 High St")
	props := writeCSV(t, dir, "gnaf_prop.csv",
		"gnaf_pid,geom",
		"A,"+hexPointOf(t, 1, 1),
		"A,"+hexPointOf(t, 2, 2),
	)

	got, _, err := Load(context.Background(), tx, props, Options{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Point.X)
	assert.Equal(t, 2.0, got[1].Point.X)
}

func TestLoad_BadGeometryKeepsRow(t *testing.T) {
	dir := t.TempDir()
	tx := writeCSV(t, dir, "transactions.csv", "gnaf_pid,street", "A,1 High St", "B,")
	props := writeCSV(t, dir, "gnaf_prop.csv",
		"gnaf_pid,geom",
		"A,not-hex",
		"B,"+hexPointOf(t, 5, 5),
	)

	got, stats, err := Load(context.Background(), tx, props, Options{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].Point)
	assert.Equal(t, "", got[1].Address)
	assert.Equal(t, 1, stats.BadGeometry)
}

func TestLoad_XYFallbackAndProjection(t *testing.T) {
	dir := t.TempDir()
	tx := writeCSV(t, dir, "transactions.csv", "GNAF_PID,Street", "A,1 High St")
	props := writeCSV(t, dir, "gnaf_prop.csv", "gnaf_pid,x,y", "A,151.2,-33.9")

	mga, err := projection.MGA(56)
	require.NoError(t, err)

	got, _, err := Load(context.Background(), tx, props, Options{Projector: mga})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Point)

	wantX, wantY := mga.Forward(151.2, -33.9)
	assert.InDelta(t, wantX, got[0].Point.X, 1e-9)
	assert.InDelta(t, wantY, got[0].Point.Y, 1e-9)
}

type geoParquetRow struct {
	GnafPID string `parquet:"gnaf_pid"`
	Geom    []byte `parquet:"geom"`
}

func TestLoad_ParquetProperties(t *testing.T) {
	dir := t.TempDir()
	tx := writeCSV(t, dir, "transactions.csv", "gnaf_pid,street", "A,1 High St", "B,2 Low St")

	g, err := wkb.Marshal(geom.NewPointFlat(geom.XY, []float64{7, 8}), wkb.NDR)
	require.NoError(t, err)
	props := filepath.Join(dir, "gnaf_prop.parquet")
	f, err := os.Create(props)
	require.NoError(t, err)
	w := parquet.NewGenericWriter[geoParquetRow](f)
	_, err = w.Write([]geoParquetRow{{GnafPID: "B", Geom: g}})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	got, stats, err := Load(context.Background(), tx, props, Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Property{Key: "B", Address: "2 Low St", Point: &orient.Point{X: 7, Y: 8}}, got[0])
	assert.Equal(t, 1, stats.Locations)
	assert.Equal(t, 0, stats.BadGeometry)
}

func TestLoad_CustomColumns(t *testing.T) {
	dir := t.TempDir()
	tx := writeCSV(t, dir, "transactions.csv", "pid,address", "A,1 High St")
	props := writeCSV(t, dir, "gnaf_prop.csv", "pid,wkb", "A,"+hexPointOf(t, 3, 4))

	cols := Columns{Key: "pid", Address: "address", Geometry: "wkb", X: "x", Y: "y"}
	got, _, err := Load(context.Background(), tx, props, Options{Columns: cols})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, &orient.Point{X: 3, Y: 4}, got[0].Point)
}

func TestLoad_MissingColumns(t *testing.T) {
	dir := t.TempDir()
	tx := writeCSV(t, dir, "transactions.csv", "gnaf_pid,suburb", "A,Carlton")
	props := writeCSV(t, dir, "gnaf_prop.csv", "gnaf_pid,geom", "A,"+hexPointOf(t, 1, 1))

	_, _, err := Load(context.Background(), tx, props, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "street"`)

	tx = writeCSV(t, dir, "transactions2.csv", "gnaf_pid,street", "A,1 High St")
	props = writeCSV(t, dir, "gnaf_prop2.csv", "gnaf_pid,lat", "A,1")
	_, _, err = Load(context.Background(), tx, props, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need column")
}

func TestDecodePoint(t *testing.T) {
	id := projection.Identity{}

	t.Run("hex with prefix", func(t *testing.T) {
		pt, err := decodePoint("\\x"+hexPointOf(t, 7, 8), "", "", id)
		require.NoError(t, err)
		assert.Equal(t, &orient.Point{X: 7, Y: 8}, pt)
	})

	t.Run("hex wins over xy", func(t *testing.T) {
		pt, err := decodePoint(hexPointOf(t, 7, 8), "1", "2", id)
		require.NoError(t, err)
		assert.Equal(t, 7.0, pt.X)
	})

	t.Run("multipoint takes first", func(t *testing.T) {
		mp := geom.NewMultiPointFlat(geom.XY, []float64{5, 6, 9, 9})
		s, err := ewkbhex.Encode(mp, binary.LittleEndian)
		require.NoError(t, err)
		pt, err := decodePoint(s, "", "", id)
		require.NoError(t, err)
		assert.Equal(t, &orient.Point{X: 5, Y: 6}, pt)
	})

	t.Run("line rejected", func(t *testing.T) {
		s, err := ewkbhex.Encode(geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1}), binary.LittleEndian)
		require.NoError(t, err)
		pt, err := decodePoint(s, "", "", id)
		require.Error(t, err)
		assert.Nil(t, pt)
	})

	t.Run("blank", func(t *testing.T) {
		pt, err := decodePoint("", "", "", id)
		require.Error(t, err)
		assert.Nil(t, pt)
	})

	t.Run("bad float", func(t *testing.T) {
		_, err := decodePoint("", "abc", "1", id)
		require.Error(t, err)
	})
}

func TestPoints(t *testing.T) {
	a := &orient.Point{X: 1, Y: 2}
	got := Points([]Property{{Point: a}, {}})
	require.Len(t, got, 2)
	assert.Same(t, a, got[0])
	assert.Nil(t, got[1])
}
