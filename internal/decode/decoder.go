package decode

import (
	"github.com/parquetry/parquetry/pkg/schema"
)

// Binding maps each output column position to its source field position,
// resolved by name against the header. A schema column absent from the
// header binds to -1 and decodes to all nulls; that is absent data, not
// an error.
type Binding []int

// Bind resolves every schema column against the header mapping.
func Bind(s *schema.Schema, header Header) Binding {
	binding := make(Binding, s.Len())
	for i, col := range s.Columns {
		if idx, ok := header[col.Name]; ok {
			binding[i] = idx
		} else {
			binding[i] = -1
		}
	}
	return binding
}

// Decoder converts split field slices into typed rows aligned to the
// schema's column order. It tracks how many values were silently
// coerced to null per column, so the lossy null-on-parse-failure policy
// stays observable.
type Decoder struct {
	schema        *schema.Schema
	binding       Binding
	nullCoercions []int64
}

// NewDecoder builds a decoder for the schema bound to the given header.
func NewDecoder(s *schema.Schema, header Header) *Decoder {
	return &Decoder{
		schema:        s,
		binding:       Bind(s, header),
		nullCoercions: make([]int64, s.Len()),
	}
}

// DecodeRow coerces one line's fields into a row. The result always has
// exactly one value per schema column.
func (d *Decoder) DecodeRow(fields []string) schema.Row {
	row := make(schema.Row, d.schema.Len())

	for i, col := range d.schema.Columns {
		srcIdx := d.binding[i]
		if srcIdx < 0 || srcIdx >= len(fields) {
			row[i] = schema.Null()
			continue
		}

		raw := fields[srcIdx]
		value := Coerce(raw, col.Type)
		if value.IsNull() && hasContent(raw) {
			d.nullCoercions[i]++
		}
		row[i] = value
	}

	return row
}

// NullCoercions returns, per output column, how many non-empty source
// values failed to parse and were coerced to null.
func (d *Decoder) NullCoercions() []int64 {
	out := make([]int64, len(d.nullCoercions))
	copy(out, d.nullCoercions)
	return out
}

func hasContent(raw string) bool {
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case ' ', '\t', '\r', '\n':
		default:
			return true
		}
	}
	return false
}
