package core

// input.go normalises uploaded text before it reaches the CSV reader.
//
// Spreadsheet exports from Windows tools commonly start with a byte order
// mark and occasionally contain stray bytes from legacy code pages. Both are
// handled while streaming:
//
//   - a UTF-8 BOM is dropped; a UTF-16 BOM switches decoding to UTF-16
//   - invalid UTF-8 sequences become U+FFFD

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// NormalizeInput wraps r so that reads yield valid UTF-8 without a BOM.
func NormalizeInput(r io.Reader) io.Reader {
	return transform.NewReader(r, transform.Chain(
		unicode.BOMOverride(unicode.UTF8.NewDecoder()),
		runes.ReplaceIllFormed(),
	))
}
