package templates

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/JonMunkholm/vlookup/internal/core"
	"github.com/JonMunkholm/vlookup/internal/lookup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c interface {
	Render(context.Context, io.Writer) error
}) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func row(kv ...string) lookup.Record {
	rec := lookup.NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		rec.Set(kv[i], lookup.StringValue(kv[i+1]))
	}
	return rec
}

func TestWorkspacePage(t *testing.T) {
	out := render(t, WorkspacePage(WorkspaceParams{
		Summary: core.SessionSummary{
			ID:            "abc",
			FileNameA:     "people.csv",
			RowsA:         2,
			ColumnsA:      []string{"id", "name"},
			ColumnsB:      []string{"id", "dept"},
			CommonColumns: []string{"id"},
			Selection:     core.Selection{LookupColumn: "id"},
			Summary:       &lookup.Summary{Processed: 2, Matched: 1, Missing: 1},
		},
		Results:        lookup.Table{row("id", "1", "dept", "Eng"), row("id", "2", "dept", lookup.NoMatch)},
		Error:          "Bad <input>",
		SuggestEnabled: true,
	}))

	assert.Contains(t, out, `action="/api/sessions/abc/tables/A"`)
	assert.Contains(t, out, `action="/api/sessions/abc/suggest"`)
	assert.Contains(t, out, `<option value="id" selected>id</option>`)
	assert.Contains(t, out, "Bad &lt;input&gt;")
	assert.Contains(t, out, "2 rows processed, 1 matched, 1 without a match.")
	assert.Contains(t, out, `href="/api/sessions/abc/export?format=parquet"`)
	assert.Contains(t, out, `<td class="missing">N/A</td>`)
}

func TestWorkspacePage_NoSuggestWhenDisabled(t *testing.T) {
	out := render(t, WorkspacePage(WorkspaceParams{Summary: core.SessionSummary{ID: "abc"}}))
	assert.NotContains(t, out, "/suggest")
	assert.NotContains(t, out, "Results")
}

func TestTablePreview_EscapesCells(t *testing.T) {
	out := render(t, TablePreview(core.SlotB, "d.csv", 10, lookup.Table{row("name", `<script>"x"</script>`)}))
	assert.Contains(t, out, "showing 1 of 10 rows")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestErrorAlert(t *testing.T) {
	out := render(t, ErrorAlert("No results to export", "Run a lookup first", "SES002"))
	assert.Contains(t, out, "<strong>No results to export</strong>")
	assert.Contains(t, out, "(SES002)")
}

func TestResultsTable_Cells(t *testing.T) {
	withGap := lookup.NewRecord()
	withGap.Set("id", lookup.StringValue("2"))

	out := render(t, ResultsTable(lookup.Table{row("id", "1", "dept", lookup.NoMatch), withGap}))

	assert.Contains(t, out, "<th>id</th><th>dept</th>")
	assert.Contains(t, out, `<tr><td>1</td><td class="missing">N/A</td></tr>`)
	assert.Contains(t, out, "<tr><td>2</td><td></td></tr>")
	assert.NotContains(t, out, "undefined")
}

func TestErrorAlert_WithoutCode(t *testing.T) {
	out := render(t, ErrorAlert("Something went wrong", "", ""))
	assert.Contains(t, out, "<strong>Something went wrong</strong>")
	assert.NotContains(t, out, `class="muted"`)
}
