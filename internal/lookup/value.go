package lookup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindAbsent Kind = iota // field not present on the record
	KindNull
	KindString
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "absent"
	}
}

// Value is a single cell: a string, number, boolean, null, or absent.
// The zero Value is absent.
type Value struct {
	kind Kind
	str  string
	num  decimal.Decimal
	b    bool
}

// AbsentValue returns the marker for a field that does not exist on a record.
func AbsentValue() Value { return Value{} }

// NullValue returns an explicit empty value.
func NullValue() Value { return Value{kind: KindNull} }

// StringValue wraps a string cell.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue wraps a numeric cell.
func NumberValue(d decimal.Decimal) Value { return Value{kind: KindNumber, num: d} }

// BoolValue wraps a boolean cell.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// ValueOf converts an arbitrary Go value into a Value.
// Integers and floats become numbers, nil becomes null, and anything else
// that is not already a scalar is rendered to text.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return NullValue()
	case Value:
		return x
	case string:
		return StringValue(x)
	case bool:
		return BoolValue(x)
	case decimal.Decimal:
		return NumberValue(x)
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return StringValue(x.String())
		}
		return NumberValue(d)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return NumberValue(decimal.NewFromInt(cast.ToInt64(x)))
	case float32, float64:
		return NumberValue(decimal.NewFromFloat(cast.ToFloat64(x)))
	default:
		s, err := cast.ToStringE(x)
		if err != nil {
			return StringValue(fmt.Sprint(x))
		}
		return StringValue(s)
	}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v marks a missing field.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// String renders v the way a browser would coerce it to text: absent fields
// become "undefined" and nulls become "null".
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "undefined"
	}
}

// Interface returns v as a plain Go value (string, decimal.Decimal, bool or nil).
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num.Equal(o.num)
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// MarshalJSON encodes numbers unquoted and both null and absent as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return []byte(v.num.String()), nil
	case KindBool:
		return []byte(strconv.FormatBool(v.b)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts any JSON scalar.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch raw.(type) {
	case map[string]any, []any:
		return fmt.Errorf("cell value must be a scalar, got %s", bytes.TrimSpace(data))
	}
	*v = ValueOf(raw)
	return nil
}
