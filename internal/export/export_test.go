package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/orientation-cli/internal/model"
)

func sampleResults() []model.PropertyResult {
	return []model.PropertyResult{
		{Seq: 0, Address: "1 High St", Orientation: "E"},
		{Seq: 1, Address: "Unit 2, 14 Smith St", Orientation: "Unknown"},
		{Seq: 2, Address: "Unknown Address", Orientation: "NW"},
	}
}

func TestWrite_CSVCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "processed", "property_orientations_final.csv")

	require.NoError(t, Write(path, "", sampleResults()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "address,orientation\n" +
		"1 High St,E\n" +
		"\"Unit 2, 14 Smith St\",Unknown\n" +
		"Unknown Address,NW\n"
	assert.Equal(t, want, string(data))
}

func TestWrite_EmptyResultsWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, Write(path, FormatCSV, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "address,orientation\n", string(data))
}

func TestWrite_XLSXByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, Write(path, "", sampleResults()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	rows := f.Sheets[0].Rows
	require.Len(t, rows, 4)
	assert.Equal(t, "address", rows[0].Cells[0].String())
	assert.Equal(t, "Unit 2, 14 Smith St", rows[2].Cells[0].String())
	assert.Equal(t, "NW", rows[3].Cells[1].String())
}

func TestWrite_ExplicitFormatWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.dat")
	require.NoError(t, Write(path, "XLSX", sampleResults()))

	_, err := xlsx.OpenFile(path)
	require.NoError(t, err)
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.parquet")

	err := Write(path, "parquet", sampleResults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported format "parquet"`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWrite_OverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, Write(path, "", sampleResults()[:1]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "address,orientation\n1 High St,E\n", string(data))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
