package codec

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payloads() map[string][]byte {
	random := make([]byte, 64*1024)
	rand.New(rand.NewSource(7)).Read(random)

	return map[string][]byte{
		"empty":  {},
		"text":   []byte("hello world"),
		"zeros":  make([]byte, 1000),
		"repeat": bytes.Repeat([]byte("backup "), 5000),
		"random": random,
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	for _, name := range []string{"gzip", "zstd", "lz4"} {
		c, err := New(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())

		for pname, data := range payloads() {
			t.Run(name+"/"+pname, func(t *testing.T) {
				packed, err := c.Compress(data)
				require.NoError(t, err)

				unpacked, err := c.Decompress(packed)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(data, unpacked), "round trip changed the payload")
			})
		}
	}
}

func TestCodecs_ShrinkRepetitiveData(t *testing.T) {
	data := make([]byte, 1000)
	for _, name := range []string{"gzip", "zstd", "lz4"} {
		c, err := New(name)
		require.NoError(t, err)

		packed, err := c.Compress(data)
		require.NoError(t, err)
		assert.Less(t, len(packed), len(data), name)
	}
}

func TestCodecs_RejectCorruptInput(t *testing.T) {
	for _, name := range []string{"gzip", "zstd", "lz4"} {
		c, err := New(name)
		require.NoError(t, err)

		_, err = c.Decompress([]byte("definitely not compressed"))
		assert.Error(t, err, name)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		suffix string
	}{
		{"gzip", ".gz"},
		{"gz", ".gz"},
		{"zstd", ".zst"},
		{"lz4", ".lz4"},
	}
	for _, tt := range tests {
		c, err := New(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.suffix, c.Suffix())
	}

	_, err := New("brotli")
	require.Error(t, err)
}

func TestForStorageName(t *testing.T) {
	data := []byte("written by one codec, read back after a restart with another")

	for _, name := range []string{"gzip", "zstd", "lz4"} {
		t.Run(name, func(t *testing.T) {
			writer, err := New(name)
			require.NoError(t, err)
			packed, err := writer.Compress(data)
			require.NoError(t, err)

			reader, err := ForStorageName("report.txt" + writer.Suffix())
			require.NoError(t, err)
			assert.Equal(t, writer.Name(), reader.Name())

			got, err := reader.Decompress(packed)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}

	_, err := ForStorageName("report.txt")
	assert.Error(t, err)
	_, err = ForStorageName("report.txt.br")
	assert.Error(t, err)
}
