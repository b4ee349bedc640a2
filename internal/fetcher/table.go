package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a header-addressed set of rows read from CSV, XLSX or Parquet.
type Table struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewTable indexes header names. Lookups are case-insensitive and the first
// occurrence of a duplicate name wins.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: header, Rows: rows, index: make(map[string]int, len(header))}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, ok := t.index[key]; !ok {
			t.index[key] = i
		}
	}
	return t
}

// Column returns the index of the named column.
func (t *Table) Column(name string) (int, bool) {
	i, ok := t.index[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// MustColumns resolves every name or returns an error naming the first
// missing column.
func (t *Table) MustColumns(names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, n := range names {
		idx, ok := t.Column(n)
		if !ok {
			return nil, eris.Errorf("table: missing column %q (have %s)", n, strings.Join(t.Header, ", "))
		}
		out[i] = idx
	}
	return out, nil
}

// Cell returns row[col], or "" when the row is short or col is negative.
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// ReadTable reads a CSV (any extension other than .xlsx or .parquet) or XLSX
// file whose first row is the header, or a Parquet file whose schema names
// the columns.
func ReadTable(ctx context.Context, path string) (*Table, error) {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, ".parquet") {
		header, rows, err := ReadParquet(ctx, path)
		if err != nil {
			return nil, err
		}
		return NewTable(header, rows), nil
	}
	if strings.EqualFold(ext, ".xlsx") {
		rows, err := ReadXLSX(path, XLSXOptions{})
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, eris.Errorf("table: %s has no header row", path)
		}
		return NewTable(rows[0], rows[1:]), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(ctx, f, CSVOptions{HasHeader: true, HeaderCh: headerCh, TrimSpace: true})

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrapf(err, "table: read %s", path)
		}
	}

	select {
	case header := <-headerCh:
		return NewTable(header, rows), nil
	default:
		return nil, eris.Errorf("table: %s has no header row", path)
	}
}
