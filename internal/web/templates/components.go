// Package templates renders the workspace UI as templ components.
package templates

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/vlookup/internal/core"
	"github.com/JonMunkholm/vlookup/internal/lookup"
	"github.com/a-h/templ"
)

// acceptedUploads is the file input's accept list.
const acceptedUploads = ".csv,.xlsx,.xls,.xlsm"

// WorkspaceParams is everything the workspace page shows.
type WorkspaceParams struct {
	Summary        core.SessionSummary
	PreviewA       lookup.Table
	PreviewB       lookup.Table
	Results        lookup.Table
	Notice         string
	Error          string
	SuggestEnabled bool
}

func sessionURL(id, path string) templ.SafeURL {
	return templ.URL("/api/sessions/" + url.PathEscape(id) + path)
}

func summaryLine(s lookup.Summary) string {
	return fmt.Sprintf("%d rows processed, %d matched, %d without a match.", s.Processed, s.Matched, s.Missing)
}

func rowCount(n int) string {
	return strconv.Itoa(n) + " rows"
}

// cell is one rendered table cell. Absent values render empty.
type cell struct {
	Text    string
	Missing bool
}

func cellOf(rec lookup.Record, col string) cell {
	v, ok := rec.Get(col)
	if !ok || v.IsAbsent() {
		return cell{}
	}
	s := v.String()
	return cell{Text: s, Missing: v.Kind() == lookup.KindString && s == lookup.NoMatch}
}

func previewCaption(slot core.Slot, fileName string, shown, total int) string {
	caption := "Table " + string(slot)
	if fileName != "" {
		caption += " · " + fileName
	}
	return fmt.Sprintf("%s · showing %d of %d rows", caption, shown, total)
}
