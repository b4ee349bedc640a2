package fetcher

import (
	"context"
	"encoding/hex"
	"io"
	"os"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"
)

const parquetBatch = 256

// ReadParquet reads a flat Parquet file into a header row and string rows.
// Nulls become "", numbers use their shortest decimal form and byte arrays
// that are not printable text (GeoParquet WKB geometry) become lowercase hex.
func ReadParquet(ctx context.Context, path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "parquet: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return nil, nil, eris.Wrapf(err, "parquet: stat %s", path)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, nil, eris.Wrapf(err, "parquet: read footer of %s", path)
	}

	fields := pf.Schema().Fields()
	header := make([]string, len(fields))
	for i, field := range fields {
		if !field.Leaf() {
			return nil, nil, eris.Errorf("parquet: %s column %q is nested", path, field.Name())
		}
		header[i] = field.Name()
	}

	var out [][]string
	buf := make([]parquet.Row, parquetBatch)
	for _, rg := range pf.RowGroups() {
		if err := ctx.Err(); err != nil {
			return nil, nil, eris.Wrap(err, "parquet: context cancelled")
		}
		out, err = readRowGroup(rg, buf, len(header), out)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "parquet: read %s", path)
		}
	}
	return header, out, nil
}

func readRowGroup(rg parquet.RowGroup, buf []parquet.Row, width int, out [][]string) ([][]string, error) {
	rows := rg.Rows()
	defer rows.Close() //nolint:errcheck

	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			rec := make([]string, width)
			for _, v := range row {
				if c := v.Column(); c >= 0 && c < width {
					rec[c] = parquetString(v)
				}
			}
			out = append(out, rec)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func parquetString(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		b := v.ByteArray()
		if printable(b) {
			return string(b)
		}
		return hex.EncodeToString(b)
	default:
		return v.String()
	}
}

// printable reports whether b is UTF-8 text without control characters.
func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
