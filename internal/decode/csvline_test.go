package decode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parquetry/parquetry/pkg/errors"
)

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"empty fields", "a,,c", []string{"a", "", "c"}},
		{"single field", "a", []string{"a"}},
		{"empty line", "", []string{""}},
		{"trailing comma", "a,b,", []string{"a", "b", ""}},
		{"quoted comma", `"x, y",z`, []string{"x, y", "z"}},
		{"escaped quote", `"he said ""hi""",b`, []string{`he said "hi"`, "b"}},
		{"quoted empty", `"",b`, []string{"", "b"}},
		{"quote mid field", `a"b"c,d`, []string{"abc", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitLineUnterminatedQuote(t *testing.T) {
	_, err := SplitLine(`a,"unterminated`)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
	assert.False(t, errors.IsFatal(err))
}

func TestResolveHeader(t *testing.T) {
	h := ResolveHeader([]string{" City ", "State", "Sales Volume"})

	assert.Equal(t, 0, h["City"])
	assert.Equal(t, 1, h["State"])
	assert.Equal(t, 2, h["Sales Volume"])
	_, ok := h[" City "]
	assert.False(t, ok)
}

func TestResolveHeaderFirstDuplicateWins(t *testing.T) {
	h := ResolveHeader([]string{"a", "b", "a"})
	assert.Equal(t, 0, h["a"])
}

func TestProbeHeader(t *testing.T) {
	names, err := ProbeHeader(strings.NewReader("\n City ,State\nrow1,row2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"City", "State"}, names)
}

func TestProbeHeaderEmptyInput(t *testing.T) {
	_, err := ProbeHeader(strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}
