package columnar

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parquetry/parquetry/pkg/errors"
	"github.com/parquetry/parquetry/pkg/schema"
)

func fullSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.Column{
		{Name: "name", Type: schema.TypeString},
		{Name: "count", Type: schema.TypeInteger},
		{Name: "ratio", Type: schema.TypeFloat},
		{Name: "active", Type: schema.TypeBoolean},
		{Name: "day", Type: schema.TypeDate},
		{Name: "at", Type: schema.TypeTimestamp},
	})
	require.NoError(t, err)
	return s
}

func TestMaterializeEmptyBatchFails(t *testing.T) {
	m := NewMaterializer(fullSchema(t))
	_, err := m.Materialize(nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFormat))
}

func TestMaterializeRoundTrip(t *testing.T) {
	s := fullSchema(t)
	m := NewMaterializer(s)

	rows := []schema.Row{
		{schema.String("a"), schema.Int(1), schema.Float(0.5), schema.Bool(true), schema.Date(19783), schema.Timestamp(1700000000000000000)},
		{schema.Null(), schema.Null(), schema.Null(), schema.Null(), schema.Null(), schema.Null()},
		{schema.String("c"), schema.Int(-3), schema.Float(2.25), schema.Bool(false), schema.Date(0), schema.Timestamp(0)},
	}

	rec, err := m.Materialize(rows)
	require.NoError(t, err)
	defer rec.Release()

	require.Equal(t, int64(3), rec.NumRows())
	require.Equal(t, int64(6), rec.NumCols())

	// Reading the arrays back column by column reproduces the input
	// value sequence.
	names := rec.Column(0).(*array.String)
	assert.Equal(t, "a", names.Value(0))
	assert.True(t, names.IsNull(1))
	assert.Equal(t, "c", names.Value(2))

	counts := rec.Column(1).(*array.Int64)
	assert.Equal(t, int64(1), counts.Value(0))
	assert.True(t, counts.IsNull(1))
	assert.Equal(t, int64(-3), counts.Value(2))

	ratios := rec.Column(2).(*array.Float64)
	assert.Equal(t, 0.5, ratios.Value(0))
	assert.True(t, ratios.IsNull(1))
	assert.Equal(t, 2.25, ratios.Value(2))

	actives := rec.Column(3).(*array.Boolean)
	assert.True(t, actives.Value(0))
	assert.True(t, actives.IsNull(1))
	assert.False(t, actives.Value(2))

	days := rec.Column(4).(*array.Date32)
	assert.Equal(t, arrow.Date32(19783), days.Value(0))
	assert.True(t, days.IsNull(1))
	assert.Equal(t, arrow.Date32(0), days.Value(2))

	ats := rec.Column(5).(*array.Timestamp)
	assert.Equal(t, arrow.Timestamp(1700000000000000000), ats.Value(0))
	assert.True(t, ats.IsNull(1))
	assert.Equal(t, arrow.Timestamp(0), ats.Value(2))
}

func TestMaterializeMismatchedKindBecomesNull(t *testing.T) {
	s, err := schema.New([]schema.Column{{Name: "n", Type: schema.TypeInteger}})
	require.NoError(t, err)
	m := NewMaterializer(s)

	// A string value in an integer column appends null, keeping column
	// length equal to batch row count.
	rows := []schema.Row{
		{schema.Int(7)},
		{schema.String("oops")},
		{schema.Int(9)},
	}

	rec, err := m.Materialize(rows)
	require.NoError(t, err)
	defer rec.Release()

	col := rec.Column(0).(*array.Int64)
	require.Equal(t, 3, col.Len())
	assert.Equal(t, int64(7), col.Value(0))
	assert.True(t, col.IsNull(1))
	assert.Equal(t, int64(9), col.Value(2))
}
