package pipeline

import (
	"github.com/parquetry/parquetry/pkg/schema"
)

// Batch is a bounded, ordered unit of decoded rows awaiting columnar
// conversion, with a running estimate of its in-memory byte footprint.
// Once handed downstream a batch is immutable and processed exactly
// once; Seq records its position in the stream.
type Batch struct {
	Rows  []schema.Row
	Bytes int
	Seq   int
}

// Accumulator collects decoded rows into batches, flushing when either
// the row-count ceiling or the byte-estimate ceiling is reached,
// whichever comes first. Together with the queue depth these two
// ceilings bound total pipeline memory.
type Accumulator struct {
	maxRows  int
	maxBytes int
	cur      *Batch
	seq      int
}

// NewAccumulator creates an accumulator with the given ceilings.
func NewAccumulator(maxRows, maxBytes int) *Accumulator {
	return &Accumulator{
		maxRows:  maxRows,
		maxBytes: maxBytes,
		cur:      &Batch{Rows: make([]schema.Row, 0, maxRows)},
	}
}

// Append adds a row to the current batch. When a ceiling is reached the
// full batch is returned for flushing and a fresh one is started;
// otherwise Append returns nil.
func (a *Accumulator) Append(row schema.Row) *Batch {
	a.cur.Rows = append(a.cur.Rows, row)
	a.cur.Bytes += row.EstimateSize()

	if len(a.cur.Rows) >= a.maxRows || a.cur.Bytes >= a.maxBytes {
		return a.rotate()
	}
	return nil
}

// Flush returns the current batch if it holds any rows, starting a new
// empty one. Called at end of stream for the final partial batch.
func (a *Accumulator) Flush() *Batch {
	if len(a.cur.Rows) == 0 {
		return nil
	}
	return a.rotate()
}

func (a *Accumulator) rotate() *Batch {
	full := a.cur
	full.Seq = a.seq
	a.seq++
	a.cur = &Batch{Rows: make([]schema.Row, 0, a.maxRows)}
	return full
}
