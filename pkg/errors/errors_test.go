package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapturesStack(t *testing.T) {
	err := New(ErrorTypeSchema, "empty file")

	assert.Equal(t, ErrorTypeSchema, err.Type)
	assert.Equal(t, "schema: empty file", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(cause, ErrorTypeIO, "get object failed")

	require.NotNil(t, err)
	assert.Equal(t, cause, err.Unwrap())
	assert.Equal(t, "io: get object failed: connection reset", err.Error())
}

func TestWrapNilReturnsNil(t *testing.T) {
	var err *Error = Wrap(nil, ErrorTypeIO, "ignored")
	assert.Nil(t, err)
}

func TestWrapKeepsInnerStack(t *testing.T) {
	inner := New(ErrorTypeFormat, "encode failed")
	outer := Wrap(inner, ErrorTypeFormat, "writer aborted")

	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, IsType(outer, ErrorTypeFormat))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeUpload, "put failed").
		WithDetail("bucket", "data").
		WithDetail("key", "out.parquet")

	assert.Equal(t, "data", err.Details["bucket"])
	assert.Equal(t, "out.parquet", err.Details["key"])
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeParse, "unterminated quote")
	wrapped := fmt.Errorf("row 42: %w", err)

	assert.True(t, IsType(wrapped, ErrorTypeParse))
	assert.False(t, IsType(wrapped, ErrorTypeIO))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeParse))
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(New(ErrorTypeParse, "bad row")))
	assert.True(t, IsFatal(New(ErrorTypeIO, "read failed")))
	assert.True(t, IsFatal(New(ErrorTypeUpload, "put failed")))
	assert.True(t, IsFatal(fmt.Errorf("unknown")))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrorTypeSchema, TypeOf(New(ErrorTypeSchema, "x")))
	assert.Equal(t, ErrorTypeInternal, TypeOf(fmt.Errorf("plain")))
}
