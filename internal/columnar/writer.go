package columnar

import (
	"bytes"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/parquetry/parquetry/pkg/config"
	"github.com/parquetry/parquetry/pkg/errors"
	"github.com/parquetry/parquetry/pkg/schema"
)

// Writer owns the parquet structure under construction for one job. It
// accepts column-major batches in arrival order; each written record
// becomes one row group, so row-group order in the output equals flush
// order, which equals input row order. Close finalizes the file footer
// and hands back the complete buffer.
type Writer struct {
	buf        bytes.Buffer
	fileWriter *pqarrow.FileWriter
	rowGroups  int
	rows       int64
	closed     bool
}

// NewWriter creates the single parquet writer for a job's lifetime,
// configured from the pipeline knobs.
func NewWriter(s *schema.Schema, cfg *config.PipelineConfig) (*Writer, error) {
	w := &Writer{}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codecFor(cfg.Compression)),
		parquet.WithDataPageSize(int64(cfg.PageSize)),
		parquet.WithDictionaryDefault(true),
		parquet.WithDictionaryPageSizeLimit(int64(cfg.DictionaryPageSize)),
		parquet.WithMaxRowGroupLength(int64(cfg.RowGroupSize)),
		parquet.WithStats(cfg.StatsEnabled),
	)
	arrowProps := pqarrow.NewArrowWriterProperties()

	fw, err := pqarrow.NewFileWriter(s.ArrowSchema(), &w.buf, props, arrowProps)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFormat, "failed to create parquet writer")
	}
	w.fileWriter = fw

	return w, nil
}

// WriteBatch appends one materialized record as the next row group. Any
// encoding failure is fatal to the job; a partially written buffer must
// be discarded.
func (w *Writer) WriteBatch(rec arrow.Record) error {
	if err := w.fileWriter.Write(rec); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFormat, "failed to write row group").
			WithDetail("row_group", w.rowGroups).
			WithDetail("rows", rec.NumRows())
	}
	w.rowGroups++
	w.rows += rec.NumRows()
	return nil
}

// Close finalizes the parquet footer and returns the complete,
// self-describing byte buffer. The writer cannot be reused.
func (w *Writer) Close() ([]byte, error) {
	if w.closed {
		return w.buf.Bytes(), nil
	}
	w.closed = true

	if err := w.fileWriter.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFormat, "failed to finalize parquet file")
	}
	return w.buf.Bytes(), nil
}

// RowGroups returns the number of row groups written so far.
func (w *Writer) RowGroups() int {
	return w.rowGroups
}

// Rows returns the number of rows written so far.
func (w *Writer) Rows() int64 {
	return w.rows
}

func codecFor(name string) compress.Compression {
	switch name {
	case "zstd":
		return compress.Codecs.Zstd
	case "gzip":
		return compress.Codecs.Gzip
	case "none":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}
