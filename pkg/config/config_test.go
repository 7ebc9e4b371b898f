package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPipelineConfigValid(t *testing.T) {
	cfg := DefaultPipelineConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "snappy", cfg.Compression)
	assert.GreaterOrEqual(t, cfg.RowGroupSize, cfg.RowsPerBatch)
}

func TestValidateRejectsBadKnobs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PipelineConfig)
	}{
		{"zero rows per batch", func(c *PipelineConfig) { c.RowsPerBatch = 0 }},
		{"zero batch bytes", func(c *PipelineConfig) { c.MaxBatchBytes = 0 }},
		{"zero queue depth", func(c *PipelineConfig) { c.QueueDepth = 0 }},
		{"zero read buffer", func(c *PipelineConfig) { c.ReadBufferSize = 0 }},
		{"row group smaller than batch", func(c *PipelineConfig) { c.RowGroupSize = c.RowsPerBatch - 1 }},
		{"unknown codec", func(c *PipelineConfig) { c.Compression = "brotli" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPipelineConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PARQUETRY_QUEUE_DEPTH", "2")
	t.Setenv("PARQUETRY_COMPRESSION", "zstd")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.QueueDepth)
	assert.Equal(t, "zstd", cfg.Compression)
	// Untouched knobs keep defaults.
	assert.Equal(t, DefaultPipelineConfig().RowsPerBatch, cfg.RowsPerBatch)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/parquetry.yaml")
	assert.Error(t, err)
}
