// Package job defines the conversion job description and the runner
// that executes one job end to end: status transitions, pipeline
// execution, and outcome reporting.
package job

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/parquetry/parquetry/pkg/errors"
	"github.com/parquetry/parquetry/pkg/schema"
)

// Description is one conversion request as delivered by the job queue
// or the CLI. OutputBucket and OutputKey are optional; absent values
// default to the source bucket and a key derived from the job id.
type Description struct {
	JobID        string          `json:"job_id"`
	Bucket       string          `json:"bucket"`
	Key          string          `json:"key"`
	OutputBucket string          `json:"output_bucket,omitempty"`
	OutputKey    string          `json:"output_key,omitempty"`
	Columns      []schema.Column `json:"schema"`
}

// Parse decodes a job description from its JSON wire form and applies
// output defaults.
func Parse(data []byte) (*Description, error) {
	var d Description
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode job description")
	}
	d.ApplyDefaults()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ApplyDefaults fills the optional output location.
func (d *Description) ApplyDefaults() {
	if d.OutputBucket == "" {
		d.OutputBucket = d.Bucket
	}
	if d.OutputKey == "" {
		d.OutputKey = fmt.Sprintf("parquet/%s.parquet", d.JobID)
	}
}

// Validate checks the description is runnable.
func (d *Description) Validate() error {
	if d.JobID == "" {
		return errors.New(errors.ErrorTypeConfig, "job_id is required")
	}
	if d.Bucket == "" {
		return errors.New(errors.ErrorTypeConfig, "bucket is required")
	}
	if d.Key == "" {
		return errors.New(errors.ErrorTypeConfig, "key is required")
	}
	if len(d.Columns) == 0 {
		return errors.New(errors.ErrorTypeConfig, "schema is required")
	}
	return nil
}

// Schema builds the validated declared schema for this job.
func (d *Description) Schema() (*schema.Schema, error) {
	return schema.New(d.Columns)
}
