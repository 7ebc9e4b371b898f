package job

import (
	"context"

	"go.uber.org/zap"

	"github.com/parquetry/parquetry/internal/pipeline"
	"github.com/parquetry/parquetry/pkg/config"
	"github.com/parquetry/parquetry/pkg/jobstatus"
)

// Runner executes conversion jobs against a shared source/sink pair,
// bracketing each run with status reports.
type Runner struct {
	cfg      *config.PipelineConfig
	source   pipeline.ByteSource
	sink     pipeline.ByteSink
	reporter jobstatus.Reporter
	logger   *zap.Logger
}

// NewRunner wires a runner. Pass jobstatus.NopReporter when no status
// table is configured.
func NewRunner(cfg *config.PipelineConfig, source pipeline.ByteSource, sink pipeline.ByteSink, reporter jobstatus.Reporter, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		source:   source,
		sink:     sink,
		reporter: reporter,
		logger:   logger,
	}
}

// Run executes one job and returns the pipeline result. Status
// reporting failures are logged but never fail the job; the conversion
// outcome is what matters.
func (r *Runner) Run(ctx context.Context, desc *Description) (*pipeline.Result, error) {
	log := r.logger.With(zap.String("job_id", desc.JobID))

	s, err := desc.Schema()
	if err != nil {
		r.report(ctx, log, desc.JobID, jobstatus.StatusFailed, err.Error())
		return nil, err
	}

	r.report(ctx, log, desc.JobID, jobstatus.StatusPending, "")

	log.Info("starting conversion",
		zap.String("bucket", desc.Bucket),
		zap.String("key", desc.Key),
		zap.String("output_key", desc.OutputKey),
		zap.Int("columns", s.Len()))

	p := pipeline.New(r.cfg, r.source, r.sink, s, log)
	res, err := p.Run(ctx,
		pipeline.Location{Bucket: desc.Bucket, Key: desc.Key},
		pipeline.Location{Bucket: desc.OutputBucket, Key: desc.OutputKey})
	if err != nil {
		log.Error("conversion failed", zap.Error(err))
		r.report(ctx, log, desc.JobID, jobstatus.StatusFailed, err.Error())
		return nil, err
	}

	r.report(ctx, log, desc.JobID, jobstatus.StatusSuccess, "")
	return res, nil
}

func (r *Runner) report(ctx context.Context, log *zap.Logger, jobID string, status jobstatus.Status, detail string) {
	if err := r.reporter.Report(ctx, jobID, status, detail); err != nil {
		log.Warn("failed to report job status",
			zap.String("status", string(status)),
			zap.Error(err))
	}
}
