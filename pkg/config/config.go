// Package config provides the configuration for parquetry conversion
// pipelines. All memory and throughput knobs live in one explicit
// PipelineConfig structure that is passed into the pipeline at
// construction, so the same code can be tuned per deployment memory
// budget without forking logic.
//
// Total pipeline memory is approximately bounded by
//
//	MaxBatchBytes × (QueueDepth + 1) + parquet writer buffers
//
// which makes the memory ceiling an explicit, tunable invariant rather
// than an emergent property of hardcoded constants.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// PipelineConfig contains every tuning knob of the conversion pipeline.
type PipelineConfig struct {
	// RowsPerBatch is the row-count ceiling of a batch. A batch is
	// flushed downstream when it reaches this many rows.
	RowsPerBatch int `mapstructure:"rows_per_batch"`

	// MaxBatchBytes is the estimated-byte ceiling of a batch. A batch is
	// flushed when its size estimate reaches this bound, whichever of the
	// two ceilings is hit first.
	MaxBatchBytes int `mapstructure:"max_batch_bytes"`

	// QueueDepth is the capacity of the bounded batch queue between the
	// decode stage and the write stage. The producer blocks when the
	// queue is full; this is the backpressure mechanism.
	QueueDepth int `mapstructure:"queue_depth"`

	// ReadBufferSize is the size of the buffered reader over the source
	// byte stream, sized to amortize remote round-trips.
	ReadBufferSize int `mapstructure:"read_buffer_size"`

	// Compression selects the parquet codec: snappy, zstd, gzip, none.
	Compression string `mapstructure:"compression"`

	// PageSize is the parquet data page size limit in bytes.
	PageSize int `mapstructure:"page_size"`

	// RowGroupSize is the maximum rows per parquet row group. Row group
	// boundaries are derived from flushed batches, so this should be at
	// least RowsPerBatch to keep one row group per batch.
	RowGroupSize int `mapstructure:"row_group_size"`

	// DictionaryPageSize is the parquet dictionary page size limit.
	DictionaryPageSize int `mapstructure:"dictionary_page_size"`

	// StatsEnabled toggles parquet column statistics.
	StatsEnabled bool `mapstructure:"stats_enabled"`

	// LogEveryRows controls progress logging frequency in rows.
	LogEveryRows int `mapstructure:"log_every_rows"`
}

// DefaultPipelineConfig returns defaults sized for a host with a few GB
// of memory: 4 in-flight batches of at most 192MB each keeps peak batch
// memory under 1GB, leaving headroom for the parquet output buffer.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		RowsPerBatch:       500_000,
		MaxBatchBytes:      192 * 1024 * 1024,
		QueueDepth:         4,
		ReadBufferSize:     8 * 1024 * 1024,
		Compression:        "snappy",
		PageSize:           8 * 1024 * 1024,
		RowGroupSize:       500_000,
		DictionaryPageSize: 2 * 1024 * 1024,
		StatsEnabled:       true,
		LogEveryRows:       100_000,
	}
}

// Load reads configuration from an optional file and PARQUETRY_* env
// vars, layered over defaults. Passing an empty path skips the file.
func Load(path string) (*PipelineConfig, error) {
	v := viper.New()

	defaults := DefaultPipelineConfig()
	v.SetDefault("rows_per_batch", defaults.RowsPerBatch)
	v.SetDefault("max_batch_bytes", defaults.MaxBatchBytes)
	v.SetDefault("queue_depth", defaults.QueueDepth)
	v.SetDefault("read_buffer_size", defaults.ReadBufferSize)
	v.SetDefault("compression", defaults.Compression)
	v.SetDefault("page_size", defaults.PageSize)
	v.SetDefault("row_group_size", defaults.RowGroupSize)
	v.SetDefault("dictionary_page_size", defaults.DictionaryPageSize)
	v.SetDefault("stats_enabled", defaults.StatsEnabled)
	v.SetDefault("log_every_rows", defaults.LogEveryRows)

	v.SetEnvPrefix("PARQUETRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &PipelineConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all knobs are within acceptable ranges.
func (c *PipelineConfig) Validate() error {
	if c.RowsPerBatch <= 0 {
		return fmt.Errorf("rows_per_batch must be positive")
	}
	if c.MaxBatchBytes <= 0 {
		return fmt.Errorf("max_batch_bytes must be positive")
	}
	if c.QueueDepth <= 0 {
		return fmt.Errorf("queue_depth must be positive")
	}
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("read_buffer_size must be positive")
	}
	if c.RowGroupSize < c.RowsPerBatch {
		return fmt.Errorf("row_group_size must be at least rows_per_batch so a batch never splits a row group")
	}
	switch c.Compression {
	case "snappy", "zstd", "gzip", "none":
	default:
		return fmt.Errorf("unsupported compression codec %q", c.Compression)
	}
	return nil
}
