// Package pipeline provides the streaming conversion engine for
// parquetry: it reads a delimited text object as a line stream, decodes
// and type-coerces rows against the declared schema, accumulates them
// into memory-bounded batches, and hands the batches across a bounded
// queue to the columnar write stage.
//
// # Architecture
//
// Two stages run concurrently:
//   - Producer: source reading, header resolution, row decoding, batch
//     accumulation
//   - Consumer: column materialization, parquet row-group writing, and
//     the final sink upload
//
// The bounded queue between them is the sole shared resource. The
// producer blocks when it is full; that is the backpressure mechanism,
// and no batch is ever dropped. Batches are consumed in exactly the order
// they were produced, because row-group order in the output file must
// match input row order. Peak pipeline memory is approximately
// MaxBatchBytes × (QueueDepth + 1).
//
// # Failure model
//
// A structurally malformed row (unterminated quote) is skipped and
// counted; everything else is fatal. When the consumer stage fails it
// stops polling the queue and cancels the producer, which exits without
// raising its own error, so the consumer's failure is what the job
// reports.
package pipeline

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/parquetry/parquetry/internal/columnar"
	"github.com/parquetry/parquetry/internal/decode"
	"github.com/parquetry/parquetry/pkg/config"
	"github.com/parquetry/parquetry/pkg/errors"
	"github.com/parquetry/parquetry/pkg/schema"
)

// Pipeline converts one delimited text object into one parquet object.
// Construct a new Pipeline per job; the configuration knobs are passed
// in rather than read from globals so the same code can be tuned to the
// deployment's memory budget.
type Pipeline struct {
	cfg    *config.PipelineConfig
	source ByteSource
	sink   ByteSink
	schema *schema.Schema
	logger *zap.Logger

	liveBatches atomic.Int64
	peakBatches atomic.Int64
}

// Result summarizes a completed conversion.
type Result struct {
	RowsRead       int64         // data lines consumed, excluding header and blanks
	RowsWritten    int64         // rows decoded and written
	RowsSkipped    int64         // rows dropped by recoverable parse errors
	BatchesFlushed int           // batches handed to the write stage
	RowGroups      int           // parquet row groups written
	OutputBytes    int64         // size of the uploaded parquet buffer
	NullCoercions  []int64       // per-column count of silent null coercions
	PeakBatches    int           // most batches resident in memory at once
	Duration       time.Duration // wall time of the whole conversion
}

// New creates a pipeline over the given source, sink, and declared
// schema. The source and sink handles are constructed once per job by
// the caller and shared by reference.
func New(cfg *config.PipelineConfig, source ByteSource, sink ByteSink, s *schema.Schema, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		source: source,
		sink:   sink,
		schema: s,
		logger: logger,
	}
}

// Run executes the conversion from in to out, blocking until the
// uploaded buffer is delivered or a fatal error aborts the job.
func (p *Pipeline) Run(ctx context.Context, in, out Location) (*Result, error) {
	start := time.Now()

	stream, err := p.source.Open(ctx, in.Bucket, in.Key)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open source object").
			WithDetail("bucket", in.Bucket).
			WithDetail("key", in.Key)
	}
	defer stream.Close()

	scanner := newLineScanner(stream, p.cfg.ReadBufferSize)

	decoder, err := p.resolveHeader(scanner)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches := make(chan *Batch, p.cfg.QueueDepth)

	var (
		wg          sync.WaitGroup
		producerErr error
		rowsRead    int64
		rowsSkipped int64
		flushed     int
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(batches)
		producerErr = p.produce(ctx, scanner, decoder, batches, &rowsRead, &rowsSkipped, &flushed)
	}()

	writer, err := columnar.NewWriter(p.schema, p.cfg)
	if err != nil {
		cancel()
		wg.Wait()
		return nil, err
	}

	consumerErr := p.consume(ctx, batches, writer, cancel)

	wg.Wait()

	// The consumer-side failure is the true fatal error; a producer that
	// merely failed to hand off a batch stays silent.
	if consumerErr != nil {
		return nil, consumerErr
	}
	if producerErr != nil {
		return nil, producerErr
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "conversion cancelled")
	}

	data, err := writer.Close()
	if err != nil {
		return nil, err
	}

	p.logger.Info("writing complete, uploading",
		zap.Int("row_groups", writer.RowGroups()),
		zap.Int64("rows", writer.Rows()),
		zap.Float64("size_mb", float64(len(data))/(1024*1024)))

	if err := p.sink.Put(ctx, out.Bucket, out.Key, data); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeUpload, "failed to upload parquet object").
			WithDetail("bucket", out.Bucket).
			WithDetail("key", out.Key)
	}

	result := &Result{
		RowsRead:       rowsRead,
		RowsWritten:    writer.Rows(),
		RowsSkipped:    rowsSkipped,
		BatchesFlushed: flushed,
		RowGroups:      writer.RowGroups(),
		OutputBytes:    int64(len(data)),
		NullCoercions:  decoder.NullCoercions(),
		PeakBatches:    int(p.peakBatches.Load()),
		Duration:       time.Since(start),
	}

	p.logger.Info("conversion finished",
		zap.Int64("rows_written", result.RowsWritten),
		zap.Int64("rows_skipped", result.RowsSkipped),
		zap.Int("batches", result.BatchesFlushed),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// resolveHeader consumes the first non-empty line and binds the schema
// to it. An input with no header line is unusable.
func (p *Pipeline) resolveHeader(scanner *lineScanner) (*decode.Decoder, error) {
	for {
		line, err := scanner.next()
		if err == io.EOF {
			return nil, errors.New(errors.ErrorTypeSchema, "empty input: no header line")
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields, err := decode.SplitLine(line)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSchema, "malformed header line")
		}
		return decode.NewDecoder(p.schema, decode.ResolveHeader(fields)), nil
	}
}

// produce reads, decodes and batches rows, handing full batches to the
// queue. It suspends when the queue is full. If the receiving end is
// gone it stops reading and exits without an error of its own.
func (p *Pipeline) produce(ctx context.Context, scanner *lineScanner, decoder *decode.Decoder, batches chan<- *Batch, rowsRead, rowsSkipped *int64, flushed *int) error {
	acc := NewAccumulator(p.cfg.RowsPerBatch, p.cfg.MaxBatchBytes)
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := scanner.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		*rowsRead++

		fields, err := decode.SplitLine(line)
		if err != nil {
			// Recoverable: skip the row and keep going.
			*rowsSkipped++
			p.logger.Debug("skipping malformed row",
				zap.Int64("row", *rowsRead),
				zap.Error(err))
			continue
		}

		if full := acc.Append(decoder.DecodeRow(fields)); full != nil {
			if !p.send(ctx, batches, full) {
				return nil
			}
			*flushed++
		}

		if p.cfg.LogEveryRows > 0 && *rowsRead%int64(p.cfg.LogEveryRows) == 0 {
			elapsed := time.Since(start).Seconds()
			p.logger.Info("processing",
				zap.Int64("rows", *rowsRead),
				zap.Float64("rows_per_sec", float64(*rowsRead)/elapsed))
		}
	}

	if final := acc.Flush(); final != nil {
		if !p.send(ctx, batches, final) {
			return nil
		}
		*flushed++
	}
	return nil
}

// send hands one batch to the queue, blocking while it is full. It
// returns false when the consumer is gone.
func (p *Pipeline) send(ctx context.Context, batches chan<- *Batch, b *Batch) bool {
	live := p.liveBatches.Add(1)
	for {
		peak := p.peakBatches.Load()
		if live <= peak || p.peakBatches.CompareAndSwap(peak, live) {
			break
		}
	}

	select {
	case batches <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

// consume materializes and writes batches in arrival order. On failure
// it cancels the producer and stops polling the queue.
func (p *Pipeline) consume(ctx context.Context, batches <-chan *Batch, writer *columnar.Writer, cancel context.CancelFunc) error {
	mat := columnar.NewMaterializer(p.schema)

	for {
		select {
		case batch, ok := <-batches:
			if !ok {
				return nil
			}

			rec, err := mat.Materialize(batch.Rows)
			if err != nil {
				cancel()
				return err
			}

			err = writer.WriteBatch(rec)
			rec.Release()
			p.liveBatches.Add(-1)
			if err != nil {
				cancel()
				return err
			}

		case <-ctx.Done():
			return nil
		}
	}
}
