package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parquetry/parquetry/pkg/errors"
	"github.com/parquetry/parquetry/pkg/schema"
)

func TestParseAppliesOutputDefaults(t *testing.T) {
	d, err := Parse([]byte(`{
		"job_id": "j-42",
		"bucket": "landing",
		"key": "uploads/data.csv",
		"schema": [
			{"column": "name", "type": "string"},
			{"column": "count", "type": "integer"}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "j-42", d.JobID)
	assert.Equal(t, "landing", d.OutputBucket)
	assert.Equal(t, "parquet/j-42.parquet", d.OutputKey)
	require.Len(t, d.Columns, 2)
	assert.Equal(t, schema.TypeInteger, d.Columns[1].Type)
}

func TestParseKeepsExplicitOutput(t *testing.T) {
	d, err := Parse([]byte(`{
		"job_id": "j-42",
		"bucket": "landing",
		"key": "uploads/data.csv",
		"output_bucket": "warehouse",
		"output_key": "curated/data.parquet",
		"schema": [{"column": "name", "type": "string"}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "warehouse", d.OutputBucket)
	assert.Equal(t, "curated/data.parquet", d.OutputKey)
}

func TestParseRejectsIncompleteDescriptions(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{{`},
		{"missing job id", `{"bucket":"b","key":"k","schema":[{"column":"a","type":"string"}]}`},
		{"missing bucket", `{"job_id":"j","key":"k","schema":[{"column":"a","type":"string"}]}`},
		{"missing key", `{"job_id":"j","bucket":"b","schema":[{"column":"a","type":"string"}]}`},
		{"missing schema", `{"job_id":"j","bucket":"b","key":"k"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestSchemaRejectsUnknownType(t *testing.T) {
	_, err := Parse([]byte(`{
		"job_id": "j",
		"bucket": "b",
		"key": "k",
		"schema": [{"column": "a", "type": "decimal"}]
	}`))
	require.Error(t, err)
}
