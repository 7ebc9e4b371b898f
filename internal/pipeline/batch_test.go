package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parquetry/parquetry/pkg/schema"
)

func TestAccumulatorFlushesOnRowCeiling(t *testing.T) {
	acc := NewAccumulator(3, 1<<20)

	require.Nil(t, acc.Append(schema.Row{schema.Int(1)}))
	require.Nil(t, acc.Append(schema.Row{schema.Int(2)}))

	full := acc.Append(schema.Row{schema.Int(3)})
	require.NotNil(t, full)
	assert.Len(t, full.Rows, 3)
	assert.Equal(t, 0, full.Seq)

	// A fresh batch starts after rotation.
	require.Nil(t, acc.Append(schema.Row{schema.Int(4)}))
	final := acc.Flush()
	require.NotNil(t, final)
	assert.Len(t, final.Rows, 1)
	assert.Equal(t, 1, final.Seq)
}

func TestAccumulatorFlushesOnByteCeiling(t *testing.T) {
	// Each string row estimates at len+24 bytes; two rows cross 60.
	acc := NewAccumulator(1000, 60)

	require.Nil(t, acc.Append(schema.Row{schema.String("abcdefgh")}))
	full := acc.Append(schema.Row{schema.String("abcdefgh")})
	require.NotNil(t, full)
	assert.Len(t, full.Rows, 2)
	assert.GreaterOrEqual(t, full.Bytes, 60)
}

func TestAccumulatorFlushEmptyReturnsNil(t *testing.T) {
	acc := NewAccumulator(10, 1<<20)
	assert.Nil(t, acc.Flush())
}

func TestAccumulatorSequenceNumbersAreContiguous(t *testing.T) {
	acc := NewAccumulator(1, 1<<20)
	for i := 0; i < 5; i++ {
		full := acc.Append(schema.Row{schema.Int(int64(i))})
		require.NotNil(t, full)
		assert.Equal(t, i, full.Seq)
	}
}
