package core

// parse.go turns uploaded files into lookup tables.
//
// Every data row becomes a record keyed by the header row, in file order.
// Parsers report malformed input instead of returning partial tables.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/vlookup/internal/lookup"
	"github.com/extrame/xls"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// IsSpreadsheet reports whether fileName should be read as an Excel workbook.
func IsSpreadsheet(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xls", ".xlsm":
		return true
	}
	return false
}

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// ParseFile parses r as a workbook or CSV depending on the file extension.
// Workbooks are routed on their content: OOXML (zip) files go to ParseXLSX
// and legacy BIFF (OLE2) files to ParseXLS, whatever the extension says.
func ParseFile(fileName string, r io.Reader) (lookup.Table, error) {
	if !IsSpreadsheet(fileName) {
		return ParseCSV(r)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileName, err)
	}
	switch {
	case len(data) == 0:
		return nil, ErrEmptyFile
	case bytes.HasPrefix(data, zipMagic):
		return ParseXLSX(bytes.NewReader(data))
	case bytes.HasPrefix(data, ole2Magic):
		return ParseXLS(bytes.NewReader(data))
	}
	return nil, errors.New("invalid spreadsheet: unrecognised workbook format")
}

// ParseCSV reads comma-separated text with a header row. Blank lines are
// skipped; every other row must have as many fields as the header.
func ParseCSV(r io.Reader) (lookup.Table, error) {
	reader := csv.NewReader(NormalizeInput(r))
	reader.FieldsPerRecord = 0 // enforce the header's width

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	table := lookup.Table{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}

		rec := lookup.NewRecord()
		for i, col := range header {
			rec.Set(col, lookup.StringValue(row[i]))
		}
		table = append(table, rec)
	}
	return table, nil
}

// ParseXLSX reads the first worksheet of a workbook. The first row is the
// header. Numeric cells become numbers, boolean cells become booleans, and
// empty cells are left out of the record.
func ParseXLSX(r io.Reader) (lookup.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("invalid spreadsheet: sheet %q: %w", sheet, err)
	}
	return tableFromRows(rows, func(col, row int, raw string) (lookup.Value, error) {
		return spreadsheetValue(f, sheet, col, row, raw)
	})
}

// ParseXLS reads the first worksheet of a legacy BIFF (.xls) workbook. The
// format carries no reliable cell types through the reader, so every
// non-empty cell becomes a string.
func ParseXLS(r io.ReadSeeker) (table lookup.Table, err error) {
	// The BIFF decoder panics on some truncated files.
	defer func() {
		if p := recover(); p != nil {
			table, err = nil, fmt.Errorf("invalid spreadsheet: legacy workbook: %v", p)
		}
	}()

	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("invalid spreadsheet: legacy workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, ErrEmptyFile
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptyFile
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return tableFromRows(rows, func(_, _ int, raw string) (lookup.Value, error) {
		return lookup.StringValue(raw), nil
	})
}

// tableFromRows builds a table from sheet rows. The first non-blank row is
// the header; blank rows are skipped and empty cells left absent. value
// converts a cell given its 1-based column and row.
func tableFromRows(rows [][]string, value func(col, row int, raw string) (lookup.Value, error)) (lookup.Table, error) {
	// Leading blank rows are not the header.
	start := 0
	for start < len(rows) && isBlankRow(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, ErrEmptyFile
	}

	header := make([]string, len(rows[start]))
	for i, h := range rows[start] {
		header[i] = strings.TrimSpace(h)
	}
	// Trailing empty header cells carry no column.
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	table := lookup.Table{}
	for i := start + 1; i < len(rows); i++ {
		if isBlankRow(rows[i]) {
			continue
		}

		rec := lookup.NewRecord()
		for j, raw := range rows[i] {
			if raw == "" {
				continue
			}
			if j >= len(header) {
				cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
				return nil, fmt.Errorf("invalid spreadsheet: cell %s is outside the header columns", cell)
			}
			v, err := value(j+1, i+1, raw)
			if err != nil {
				return nil, err
			}
			rec.Set(header[j], v)
		}
		table = append(table, rec)
	}
	return table, nil
}

// spreadsheetValue converts a raw cell string using the cell's stored type.
func spreadsheetValue(f *excelize.File, sheet string, col, row int, raw string) (lookup.Value, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return lookup.Value{}, fmt.Errorf("invalid spreadsheet: %w", err)
	}
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return lookup.Value{}, fmt.Errorf("invalid spreadsheet: cell %s: %w", cell, err)
	}

	switch typ {
	case excelize.CellTypeBool:
		return lookup.BoolValue(raw == "1" || strings.EqualFold(raw, "true")), nil
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if d, err := decimal.NewFromString(raw); err == nil {
			return lookup.NumberValue(d), nil
		}
	}
	return lookup.StringValue(raw), nil
}

func validateHeader(header []string) error {
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		if h == "" {
			return fmt.Errorf("%w: column %d has no name", ErrBadHeader, i+1)
		}
		if seen[h] {
			return fmt.Errorf("%w: %q appears more than once", ErrBadHeader, h)
		}
		seen[h] = true
	}
	return nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
