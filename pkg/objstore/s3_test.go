package objstore

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecompressByKeyPassThrough(t *testing.T) {
	body := io.NopCloser(bytes.NewReader([]byte("a,b\n1,2\n")))

	r, err := DecompressByKey(body, "data.csv")
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(got))
}

func TestDecompressByKeyGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	r, err := DecompressByKey(io.NopCloser(&buf), "data.csv.gz")
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(got))
	require.NoError(t, r.Close())
}

func TestDecompressByKeyZstd(t *testing.T) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write([]byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	r, err := DecompressByKey(io.NopCloser(&buf), "data.csv.zst")
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(got))
	require.NoError(t, r.Close())
}

func TestDecompressByKeyCorruptGzip(t *testing.T) {
	body := io.NopCloser(bytes.NewReader([]byte("not gzip at all")))
	_, err := DecompressByKey(body, "data.csv.gz")
	require.Error(t, err)
}
