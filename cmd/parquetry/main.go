package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parquetry/parquetry/internal/decode"
	"github.com/parquetry/parquetry/internal/job"
	"github.com/parquetry/parquetry/pkg/config"
	"github.com/parquetry/parquetry/pkg/jobqueue"
	"github.com/parquetry/parquetry/pkg/jobstatus"
	"github.com/parquetry/parquetry/pkg/logger"
	"github.com/parquetry/parquetry/pkg/objstore"
)

var version = "0.1.0"

// storeFlags are the S3 connectivity options shared by the commands
// that touch object storage.
type storeFlags struct {
	region    string
	endpoint  string
	pathStyle bool
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.region, "region", "", "AWS region (defaults to the environment)")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "Custom S3 endpoint, e.g. a local MinIO")
	cmd.Flags().BoolVar(&f.pathStyle, "path-style", false, "Use path-style S3 addressing (required for MinIO)")
}

func (f *storeFlags) client(ctx context.Context, log *zap.Logger) (*objstore.Client, error) {
	return objstore.NewClient(ctx, objstore.Config{
		Region:    f.region,
		Endpoint:  f.endpoint,
		PathStyle: f.pathStyle,
	}, log)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var logLevel string

	root := &cobra.Command{
		Use:   "parquetry",
		Short: "Parquetry - streaming CSV to parquet conversion",
		Long: `Parquetry converts delimited text objects in S3 into parquet objects
using a fixed memory ceiling, so arbitrarily large inputs convert on a
small host. Jobs arrive from an SQS queue or directly from the CLI.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{Level: logLevel})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Parquetry v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newConvertCmd())
	root.AddCommand(newHeadersCmd())
	root.AddCommand(newWorkerCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

// newConvertCmd runs one conversion job described by a JSON file.
func newConvertCmd() *cobra.Command {
	var (
		store       storeFlags
		jobFile     string
		configFile  string
		statusTable string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Run a single conversion job",
		Long: `Run one conversion job described by a JSON job file. The job file
has the same shape as a queued job message:

  {
    "job_id": "j-42",
    "bucket": "landing",
    "key": "uploads/data.csv",
    "schema": [
      {"column": "name", "type": "string"},
      {"column": "count", "type": "integer"}
    ]
  }`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			data, err := os.ReadFile(jobFile)
			if err != nil {
				return fmt.Errorf("failed to read job file %s: %w", jobFile, err)
			}
			desc, err := job.Parse(data)
			if err != nil {
				return err
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			log := logger.Get()
			client, err := store.client(ctx, log)
			if err != nil {
				return err
			}

			reporter, err := buildReporter(ctx, statusTable, store.region, log)
			if err != nil {
				return err
			}

			runner := job.NewRunner(cfg, client, client, reporter, log)
			res, err := runner.Run(ctx, desc)
			if err != nil {
				return err
			}

			fmt.Printf("wrote s3://%s/%s: %d rows in %d row groups (%d skipped, %.1f MB, %s)\n",
				desc.OutputBucket, desc.OutputKey,
				res.RowsWritten, res.RowGroups, res.RowsSkipped,
				float64(res.OutputBytes)/(1024*1024), res.Duration.Round(time.Millisecond))
			return nil
		},
	}

	store.register(cmd)
	cmd.Flags().StringVarP(&jobFile, "job-file", "j", "", "Path to the JSON job description (required)")
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a pipeline configuration file (optional)")
	cmd.Flags().StringVar(&statusTable, "status-table", "", "DynamoDB status table (optional)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Hour, "Conversion timeout")
	_ = cmd.MarkFlagRequired("job-file")

	return cmd
}

// newHeadersCmd probes an object's header line without converting it,
// so callers can draft a schema against the actual column names.
func newHeadersCmd() *cobra.Command {
	var (
		store  storeFlags
		bucket string
		key    string
	)

	cmd := &cobra.Command{
		Use:   "headers",
		Short: "Print the column names of an object's header line",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			client, err := store.client(ctx, logger.Get())
			if err != nil {
				return err
			}

			names, err := probeHeaders(ctx, client, bucket, key)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}

	store.register(cmd)
	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "Source bucket (required)")
	cmd.Flags().StringVarP(&key, "key", "k", "", "Source object key (required)")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

// newWorkerCmd long-polls the job queue until interrupted.
func newWorkerCmd() *cobra.Command {
	var (
		store       storeFlags
		queueURL    string
		configFile  string
		statusTable string
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Poll the job queue and convert jobs until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			log := logger.Get()
			client, err := store.client(ctx, log)
			if err != nil {
				return err
			}

			reporter, err := buildReporter(ctx, statusTable, store.region, log)
			if err != nil {
				return err
			}

			poller, err := jobqueue.NewPoller(ctx, queueURL, store.region, log)
			if err != nil {
				return err
			}

			runner := job.NewRunner(cfg, client, client, reporter, log)
			log.Info("worker started", zap.String("queue_url", queueURL))

			return runWorker(ctx, poller, runner, log)
		},
	}

	store.register(cmd)
	cmd.Flags().StringVarP(&queueURL, "queue-url", "q", "", "SQS queue URL (required)")
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a pipeline configuration file (optional)")
	cmd.Flags().StringVar(&statusTable, "status-table", "", "DynamoDB status table (optional)")
	_ = cmd.MarkFlagRequired("queue-url")

	return cmd
}

// runWorker is the poll loop. A failed job is logged and left on the
// queue for redelivery; only acknowledged jobs are deleted.
func runWorker(ctx context.Context, poller *jobqueue.Poller, runner *job.Runner, log *zap.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			log.Info("worker stopping")
			return nil
		}

		msg, err := poller.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping")
				return nil
			}
			log.Error("failed to receive job", zap.Error(err))
			time.Sleep(5 * time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		desc, err := job.Parse([]byte(msg.Body))
		if err != nil {
			// Unparseable jobs can never succeed; drop them.
			log.Error("dropping malformed job message", zap.Error(err))
			if ackErr := poller.Ack(ctx, msg); ackErr != nil {
				log.Warn("failed to delete malformed job", zap.Error(ackErr))
			}
			continue
		}

		if _, err := runner.Run(logger.ContextWithJobID(ctx, desc.JobID), desc); err != nil {
			log.Error("job failed, leaving for redelivery",
				zap.String("job_id", desc.JobID),
				zap.Error(err))
			continue
		}

		if err := poller.Ack(ctx, msg); err != nil {
			log.Warn("failed to acknowledge completed job",
				zap.String("job_id", desc.JobID),
				zap.Error(err))
		}
	}
}

// probeHeaders reads just enough of the object to resolve its header.
func probeHeaders(ctx context.Context, client *objstore.Client, bucket, key string) ([]string, error) {
	stream, err := client.Open(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	return decode.ProbeHeader(stream)
}

func buildReporter(ctx context.Context, statusTable, region string, log *zap.Logger) (jobstatus.Reporter, error) {
	if statusTable == "" {
		return jobstatus.NopReporter{}, nil
	}
	return jobstatus.NewDynamoReporter(ctx, statusTable, region, log)
}
