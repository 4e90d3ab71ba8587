package core

// export.go encodes a session's result table for download.
//
// CSV uses the lookup package's delimited text so downloads match what the
// engine renders. Parquet stores every column as an optional UTF-8 string;
// absent and null cells become parquet nulls.

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/JonMunkholm/vlookup/internal/lookup"
	"github.com/cespare/xxhash/v2"
	"github.com/parquet-go/parquet-go"
)

const exportBaseName = "vlookup-results"

// ParseExportFormat accepts "csv" or "parquet". Empty means csv.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Export encodes the session's current results.
func (s *Service) Export(id string, format ExportFormat) (Export, error) {
	sess, err := s.GetSession(id)
	if err != nil {
		return Export{}, err
	}
	if len(sess.Results) == 0 {
		return Export{}, ErrNoResults
	}

	var data []byte
	switch format {
	case FormatCSV:
		data = []byte(lookup.ToDelimitedText(sess.Results))
	case FormatParquet:
		data, err = EncodeParquet(sess.Results)
		if err != nil {
			return Export{}, fmt.Errorf("encode parquet: %w", err)
		}
	default:
		return Export{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return Export{
		Format:   format,
		FileName: exportBaseName + "." + string(format),
		Data:     data,
		ETag:     ContentETag(data),
	}, nil
}

// ContentETag returns a strong ETag for data.
func ContentETag(data []byte) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%016x", xxhash.Sum64(data)))
}

// EncodeParquet writes t as a single parquet file. Columns come from the
// first record.
func EncodeParquet(t lookup.Table) ([]byte, error) {
	cols := t.Columns()
	if len(cols) == 0 {
		return nil, ErrNoResults
	}

	group := make(parquet.Group, len(cols))
	for _, col := range cols {
		group[col] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("results", group)

	// The schema orders its fields by name; rows must follow that order.
	fields := schema.Fields()
	order := make([]string, len(fields))
	for i, f := range fields {
		order[i] = f.Name()
	}

	var buf bytes.Buffer
	pw := parquet.NewWriter(&buf, schema, parquet.Compression(&parquet.Snappy))

	const batchSize = 1000
	rows := make([]parquet.Row, 0, batchSize)
	for i, rec := range t {
		row := make(parquet.Row, len(order))
		for j, col := range order {
			row[j] = parquetCell(rec.Value(col), j)
		}
		rows = append(rows, row)

		if len(rows) == batchSize {
			if _, err := pw.WriteRows(rows); err != nil {
				return nil, fmt.Errorf("write rows at %d: %w", i-len(rows)+1, err)
			}
			rows = rows[:0]
		}
	}
	if len(rows) > 0 {
		if _, err := pw.WriteRows(rows); err != nil {
			return nil, fmt.Errorf("write final rows: %w", err)
		}
	}

	if err := pw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parquetCell(v lookup.Value, column int) parquet.Value {
	switch v.Kind() {
	case lookup.KindAbsent, lookup.KindNull:
		return parquet.NullValue().Level(0, 0, column)
	}
	return parquet.ByteArrayValue([]byte(v.String())).Level(0, 1, column)
}
