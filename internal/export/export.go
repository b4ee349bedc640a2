// Package export writes the ordered (address, orientation) result rows.
package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/orientation-cli/internal/model"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Columns is the output header.
var Columns = []string{"address", "orientation"}

// Write writes results to path in the given format. An empty format is taken
// from the file extension. The file is written to a temporary sibling and
// renamed into place, so a failed write leaves no partial output.
func Write(path, format string, results []model.PropertyResult) error {
	format = resolveFormat(path, format)
	if format != FormatCSV && format != FormatXLSX {
		return eris.Errorf("export: unsupported format %q", format)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "export: create output directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrap(err, "export: create temp file")
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath) //nolint:errcheck

	switch format {
	case FormatXLSX:
		err = writeXLSX(tmpPath, results)
	default:
		err = writeCSV(tmpPath, results)
	}
	if err != nil {
		return err
	}

	return eris.Wrap(os.Rename(tmpPath, path), "export: move output into place")
}

func resolveFormat(path, format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "" {
		return format
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

func writeCSV(path string, results []model.PropertyResult) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create csv")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, r := range results {
		if err := w.Write([]string{r.Address, r.Orientation}); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return eris.Wrap(f.Sync(), "export: sync csv")
}

func writeXLSX(path string, results []model.PropertyResult) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("orientations")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range Columns {
		header.AddCell().SetString(c)
	}
	for _, r := range results {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Address)
		row.AddCell().SetString(r.Orientation)
	}

	return eris.Wrap(f.Save(path), "export: save xlsx")
}
