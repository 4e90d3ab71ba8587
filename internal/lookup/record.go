package lookup

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one row: column names mapped to values, in column order.
//
// Records handed to the engine are treated as read-only. Use With to derive
// a modified copy; Set is for builders that own the record.
type Record struct {
	cols []string
	vals map[string]Value
}

// Field is a single column/value pair used to build records.
type Field struct {
	Name  string
	Value Value
}

// NewRecord builds a record from fields in order. A repeated name keeps its
// first position and takes the last value.
func NewRecord(fields ...Field) Record {
	r := Record{
		cols: make([]string, 0, len(fields)),
		vals: make(map[string]Value, len(fields)),
	}
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Len returns the number of columns.
func (r Record) Len() int { return len(r.cols) }

// Columns returns the column names in order.
func (r Record) Columns() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

// Get returns the value for col and whether the column exists.
func (r Record) Get(col string) (Value, bool) {
	v, ok := r.vals[col]
	return v, ok
}

// Value returns the value for col, or an absent value.
func (r Record) Value(col string) Value {
	return r.vals[col]
}

// Has reports whether col exists on the record.
func (r Record) Has(col string) bool {
	_, ok := r.vals[col]
	return ok
}

// Set assigns col in place, appending it if new.
func (r *Record) Set(col string, v Value) {
	if r.vals == nil {
		r.vals = make(map[string]Value)
	}
	if _, ok := r.vals[col]; !ok {
		r.cols = append(r.cols, col)
	}
	r.vals[col] = v
}

// With returns a shallow copy of r with col set to v. An existing column
// keeps its position.
func (r Record) With(col string, v Value) Record {
	out := Record{
		cols: make([]string, len(r.cols), len(r.cols)+1),
		vals: make(map[string]Value, len(r.vals)+1),
	}
	copy(out.cols, r.cols)
	for k, val := range r.vals {
		out.vals[k] = val
	}
	out.Set(col, v)
	return out
}

// Equal reports whether both records have the same columns in the same
// order with equal values.
func (r Record) Equal(o Record) bool {
	if len(r.cols) != len(o.cols) {
		return false
	}
	for i, c := range r.cols {
		if o.cols[i] != c || !r.vals[c].Equal(o.vals[c]) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the record as an object with keys in column order.
// Absent values are omitted.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, c := range r.cols {
		v := r.vals[c]
		if v.IsAbsent() {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		val, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, keeping keys in document order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	out := Record{vals: make(map[string]Value)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record key must be a string")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("record field %q: %w", key, err)
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("record field %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = out
	return nil
}

// Table is an ordered sequence of records, usually sharing one header row.
type Table []Record

// Columns returns the column names of the first record, or nil for an
// empty table.
func (t Table) Columns() []string {
	if len(t) == 0 {
		return nil
	}
	return t[0].Columns()
}

// HasColumn reports whether the first record carries col.
func (t Table) HasColumn(col string) bool {
	return len(t) > 0 && t[0].Has(col)
}
