// Package schema defines the declared output schema of a conversion job
// and the typed values produced by row decoding.
//
// A Schema is an ordered list of (column name, type) pairs supplied once
// at job start; order defines output column order and names are matched
// against the source header by name, never by position. The type set is
// closed and every consumption point switches over it exhaustively.
package schema

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/goccy/go-json"
)

// TypeTag is the closed set of declarable column types.
type TypeTag string

const (
	TypeString    TypeTag = "string"
	TypeInteger   TypeTag = "integer"
	TypeFloat     TypeTag = "float"
	TypeBoolean   TypeTag = "boolean"
	TypeDate      TypeTag = "date"
	TypeDateTime  TypeTag = "datetime"
	TypeTimestamp TypeTag = "timestamp"
)

// ParseTypeTag converts a string into a TypeTag, rejecting anything
// outside the closed set.
func ParseTypeTag(s string) (TypeTag, error) {
	switch TypeTag(s) {
	case TypeString, TypeInteger, TypeFloat, TypeBoolean, TypeDate, TypeDateTime, TypeTimestamp:
		return TypeTag(s), nil
	default:
		return "", fmt.Errorf("unknown column type %q", s)
	}
}

// UnmarshalJSON validates the closed type set on decode.
func (t *TypeTag) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	tag, err := ParseTypeTag(s)
	if err != nil {
		return err
	}
	*t = tag
	return nil
}

// ArrowType returns the physical arrow storage type for the tag.
// Each tag maps deterministically to exactly one physical type.
func (t TypeTag) ArrowType() arrow.DataType {
	switch t {
	case TypeString:
		return arrow.BinaryTypes.String
	case TypeInteger:
		return arrow.PrimitiveTypes.Int64
	case TypeFloat:
		return arrow.PrimitiveTypes.Float64
	case TypeBoolean:
		return arrow.FixedWidthTypes.Boolean
	case TypeDate:
		return arrow.FixedWidthTypes.Date32
	case TypeDateTime, TypeTimestamp:
		return arrow.FixedWidthTypes.Timestamp_ns
	default:
		// The set is closed; decoding rejects anything else.
		panic(fmt.Sprintf("unknown type tag %q", string(t)))
	}
}

// Column is one declared output column.
type Column struct {
	Name string  `json:"column"`
	Type TypeTag `json:"type"`
}

// Schema is the ordered, immutable declared output schema of a job.
type Schema struct {
	Columns []Column `json:"columns"`
}

// New builds a validated Schema from columns.
func New(columns []Column) (*Schema, error) {
	s := &Schema{Columns: columns}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the schema invariants: at least one column, unique
// non-empty names, known types.
func (s *Schema) Validate() error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("schema must declare at least one column")
	}

	seen := make(map[string]struct{}, len(s.Columns))
	for i, col := range s.Columns {
		if col.Name == "" {
			return fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("duplicate column name %q", col.Name)
		}
		seen[col.Name] = struct{}{}
		if _, err := ParseTypeTag(string(col.Type)); err != nil {
			return fmt.Errorf("column %q: %w", col.Name, err)
		}
	}
	return nil
}

// Len returns the number of declared columns.
func (s *Schema) Len() int {
	return len(s.Columns)
}

// ArrowSchema converts the declared schema into an arrow schema. Every
// column is nullable: parse failures and absent source columns produce
// nulls by policy.
func (s *Schema) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, 0, len(s.Columns))
	for _, col := range s.Columns {
		fields = append(fields, arrow.Field{
			Name:     col.Name,
			Type:     col.Type.ArrowType(),
			Nullable: true,
		})
	}
	return arrow.NewSchema(fields, nil)
}
