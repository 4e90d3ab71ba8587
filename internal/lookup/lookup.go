// Package lookup implements a VLOOKUP-style join between two in-memory tables.
//
// Keys are compared after normalisation (trimmed, lowercased). The package is
// pure: every function reads its inputs and returns fresh values, so callers
// may invoke it from any goroutine.
//
// Two match rules coexist and are both intentional to keep:
//
//   - SingleLookup scans the reference table and returns the FIRST match.
//   - BuildIndex and BulkLookup keep the LAST row for a duplicated key.
package lookup

import (
	"strings"
	"unicode"
)

// NoMatch is written into the returned column when a bulk lookup finds no key.
const NoMatch = "N/A"

// Normalize trims surrounding whitespace and lowercases s. The byte order
// mark counts as whitespace and NEL does not, as in JavaScript's trim.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimFunc(s, isTrimSpace))
}

func isTrimSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}

// normalizedKey stringifies v before normalising, so a missing field
// produces the key "undefined".
func normalizedKey(v Value) string {
	return Normalize(v.String())
}

// Index maps normalized keys to the value of the indexed column.
type Index map[string]Value

// BuildIndex indexes ref by matchColumn, storing valueColumn. Later rows
// overwrite earlier rows with the same normalized key.
func BuildIndex(ref Table, matchColumn, valueColumn string) Index {
	idx := make(Index, len(ref))
	for _, rec := range ref {
		idx[normalizedKey(rec.Value(matchColumn))] = rec.Value(valueColumn)
	}
	return idx
}

// Lookup normalizes key and returns the indexed value.
func (idx Index) Lookup(key string) (Value, bool) {
	v, ok := idx[Normalize(key)]
	return v, ok
}

// SingleLookup returns valueColumn of the first record in ref whose
// matchColumn equals key after normalisation. found is false when no
// record matches.
func SingleLookup(key string, ref Table, matchColumn, valueColumn string) (v Value, found bool) {
	want := Normalize(key)
	for _, rec := range ref {
		if normalizedKey(rec.Value(matchColumn)) == want {
			return rec.Value(valueColumn), true
		}
	}
	return AbsentValue(), false
}

// Summary counts the outcome of a bulk lookup.
type Summary struct {
	Processed int `json:"processed"`
	Matched   int `json:"matched"`
	Missing   int `json:"missing"`
}

// BulkLookup joins ref onto primary. Each output row is a copy of the
// primary row with returnColumn set to the matched value or NoMatch.
func BulkLookup(primary, ref Table, lookupColumn, matchColumn, returnColumn string) Table {
	out, _ := BulkLookupWithSummary(primary, ref, lookupColumn, matchColumn, returnColumn)
	return out
}

// BulkLookupWithSummary is BulkLookup that also reports match counts.
// An indexed value that is itself absent counts as missing.
func BulkLookupWithSummary(primary, ref Table, lookupColumn, matchColumn, returnColumn string) (Table, Summary) {
	idx := BuildIndex(ref, matchColumn, returnColumn)

	out := make(Table, len(primary))
	sum := Summary{Processed: len(primary)}
	for i, rec := range primary {
		v, ok := idx[normalizedKey(rec.Value(lookupColumn))]
		if !ok || v.IsAbsent() {
			v = StringValue(NoMatch)
			sum.Missing++
		} else {
			sum.Matched++
		}
		out[i] = rec.With(returnColumn, v)
	}
	return out, sum
}

// FindCommonColumns returns the columns of b's first record, in b's order,
// that also exist on a's first record.
func FindCommonColumns(a, b Table) []string {
	if len(a) == 0 || len(b) == 0 {
		return []string{}
	}
	common := []string{}
	for _, col := range b[0].cols {
		if a[0].Has(col) {
			common = append(common, col)
		}
	}
	return common
}

// ToDelimitedText renders t as comma-separated text. The header comes from
// the first record. A cell containing a comma or double quote is quoted with
// inner quotes doubled; nothing else is escaped.
func ToDelimitedText(t Table) string {
	if len(t) == 0 {
		return ""
	}

	headers := t[0].cols
	var b strings.Builder
	b.WriteString(strings.Join(headers, ","))

	for _, rec := range t {
		b.WriteByte('\n')
		for j, h := range headers {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(escapeCell(rec.Value(h).String()))
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	if !strings.ContainsAny(s, `,"`) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
