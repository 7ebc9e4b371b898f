// Package columnar converts row-major batches into arrow record batches
// and appends them to a growing parquet structure, finalized into a
// single self-describing byte buffer at end of stream.
package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/parquetry/parquetry/pkg/errors"
	"github.com/parquetry/parquetry/pkg/schema"
)

// Materializer turns a batch of rows into one typed arrow array per
// declared column. It is a pure conversion: the input batch is never
// mutated and each batch is materialized exactly once.
type Materializer struct {
	schema      *schema.Schema
	arrowSchema *arrow.Schema
	mem         memory.Allocator
}

// NewMaterializer builds a materializer for the declared schema.
func NewMaterializer(s *schema.Schema) *Materializer {
	return &Materializer{
		schema:      s,
		arrowSchema: s.ArrowSchema(),
		mem:         memory.NewGoAllocator(),
	}
}

// ArrowSchema returns the arrow schema the materializer produces.
func (m *Materializer) ArrowSchema() *arrow.Schema {
	return m.arrowSchema
}

// Materialize converts rows into an arrow record, preserving row order.
// Builders are pre-sized to the batch length so appending never
// reallocates. A value whose kind does not match the column's declared
// type, including null, appends a null entry, keeping every column
// exactly as long as the batch. The caller owns the returned record and
// must Release it. Materializing an empty batch is a format error: the
// pipeline never issues one.
func (m *Materializer) Materialize(rows []schema.Row) (arrow.Record, error) {
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrorTypeFormat, "cannot materialize an empty batch")
	}

	rb := array.NewRecordBuilder(m.mem, m.arrowSchema)
	defer rb.Release()
	rb.Reserve(len(rows))

	for colIdx, col := range m.schema.Columns {
		switch col.Type {
		case schema.TypeString:
			b := rb.Field(colIdx).(*array.StringBuilder)
			totalChars := 0
			for _, row := range rows {
				if v := row[colIdx]; v.Kind() == schema.KindString {
					totalChars += len(v.Str())
				}
			}
			b.ReserveData(totalChars)
			for _, row := range rows {
				if v := row[colIdx]; v.Kind() == schema.KindString {
					b.Append(v.Str())
				} else {
					b.AppendNull()
				}
			}

		case schema.TypeInteger:
			b := rb.Field(colIdx).(*array.Int64Builder)
			for _, row := range rows {
				if v := row[colIdx]; v.Kind() == schema.KindInteger {
					b.Append(v.Int64())
				} else {
					b.AppendNull()
				}
			}

		case schema.TypeFloat:
			b := rb.Field(colIdx).(*array.Float64Builder)
			for _, row := range rows {
				if v := row[colIdx]; v.Kind() == schema.KindFloat {
					b.Append(v.Float64())
				} else {
					b.AppendNull()
				}
			}

		case schema.TypeBoolean:
			b := rb.Field(colIdx).(*array.BooleanBuilder)
			for _, row := range rows {
				if v := row[colIdx]; v.Kind() == schema.KindBoolean {
					b.Append(v.Bool())
				} else {
					b.AppendNull()
				}
			}

		case schema.TypeDate:
			b := rb.Field(colIdx).(*array.Date32Builder)
			for _, row := range rows {
				if v := row[colIdx]; v.Kind() == schema.KindDate {
					b.Append(arrow.Date32(v.DateDays()))
				} else {
					b.AppendNull()
				}
			}

		case schema.TypeDateTime, schema.TypeTimestamp:
			b := rb.Field(colIdx).(*array.TimestampBuilder)
			for _, row := range rows {
				if v := row[colIdx]; v.Kind() == schema.KindTimestamp {
					b.Append(arrow.Timestamp(v.TimestampNanos()))
				} else {
					b.AppendNull()
				}
			}
		}
	}

	return rb.NewRecord(), nil
}
