package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/vlookup/internal/lookup"
)

// Slot identifies which of the two tables a file is loaded into.
type Slot string

const (
	SlotA Slot = "A" // primary table, holds the lookup column
	SlotB Slot = "B" // reference table, holds the match and return columns
)

// ParseSlot accepts "a"/"b" in either case.
func ParseSlot(s string) (Slot, error) {
	switch Slot(strings.ToUpper(strings.TrimSpace(s))) {
	case SlotA:
		return SlotA, nil
	case SlotB:
		return SlotB, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSlot, s)
}

// Selection is the user's choice of columns. Any field may be empty until
// the user picks it.
type Selection struct {
	LookupColumn string `json:"lookupColumn"`
	MatchColumn  string `json:"matchColumn"`
	ReturnColumn string `json:"returnColumn"`
}

// Session is the explicit state of one workspace.
type Session struct {
	ID        string          `json:"id"`
	TableA    lookup.Table    `json:"-"`
	TableB    lookup.Table    `json:"-"`
	FileNameA string          `json:"fileNameA"`
	FileNameB string          `json:"fileNameB"`
	Selection Selection       `json:"selection"`
	Results   lookup.Table    `json:"-"`
	Summary   *lookup.Summary `json:"summary,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`

	// Version increases on every write.
	Version uint64 `json:"-"`
}

// Table returns the table loaded into slot.
func (s *Session) Table(slot Slot) lookup.Table {
	if slot == SlotA {
		return s.TableA
	}
	return s.TableB
}

// FileName returns the file name loaded into slot.
func (s *Session) FileName(slot Slot) string {
	if slot == SlotA {
		return s.FileNameA
	}
	return s.FileNameB
}

// SessionSummary is the JSON view of a session.
type SessionSummary struct {
	ID            string          `json:"id"`
	FileNameA     string          `json:"fileNameA,omitempty"`
	FileNameB     string          `json:"fileNameB,omitempty"`
	RowsA         int             `json:"rowsA"`
	RowsB         int             `json:"rowsB"`
	ColumnsA      []string        `json:"columnsA"`
	ColumnsB      []string        `json:"columnsB"`
	CommonColumns []string        `json:"commonColumns"`
	Selection     Selection       `json:"selection"`
	ResultRows    int             `json:"resultRows"`
	Summary       *lookup.Summary `json:"summary,omitempty"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// LoadResult describes a freshly loaded table.
type LoadResult struct {
	Slot     Slot     `json:"slot"`
	FileName string   `json:"fileName"`
	Rows     int      `json:"rows"`
	Columns  []string `json:"columns"`
}

// SingleResult is the outcome of a single-value lookup.
type SingleResult struct {
	Query  string       `json:"query"`
	Found  bool         `json:"found"`
	Value  lookup.Value `json:"value"`
	Column string       `json:"column"`
}

// Display returns the text shown to the user: the value or the no-match marker.
func (r SingleResult) Display() string {
	if !r.Found {
		return lookup.NoMatch
	}
	return r.Value.String()
}

// BulkResult is the outcome of a bulk lookup.
type BulkResult struct {
	Rows     lookup.Table   `json:"rows"`
	Summary  lookup.Summary `json:"summary"`
	Duration time.Duration  `json:"-"`
}

// ExportFormat selects the export encoding.
type ExportFormat string

const (
	FormatCSV     ExportFormat = "csv"
	FormatParquet ExportFormat = "parquet"
)

// ContentType returns the MIME type for the format.
func (f ExportFormat) ContentType() string {
	if f == FormatParquet {
		return "application/vnd.apache.parquet"
	}
	return "text/csv; charset=utf-8"
}

// Export is an encoded result table ready for download.
type Export struct {
	Format   ExportFormat
	FileName string
	Data     []byte
	ETag     string
}
