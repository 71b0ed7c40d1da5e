// Package codec implements the lossless compressors used for the cold tier.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec compresses whole files for the cold tier. Implementations are safe
// for concurrent use.
type Codec interface {
	Name() string
	// Suffix is appended to a logical name to form the cold storage name.
	Suffix() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// New returns the codec registered under name: "gzip", "zstd" or "lz4".
func New(name string) (Codec, error) {
	switch name {
	case "gzip", "gz":
		return Gzip{}, nil
	case "zstd", "zst":
		return newZstd()
	case "lz4":
		return LZ4{}, nil
	default:
		return nil, fmt.Errorf("unknown codec: %q", name)
	}
}

var sharedZstd = sync.OnceValues(newZstd)

// ForStorageName returns the codec that wrote a cold copy, judged by its
// suffix. Cold files outlive the configured codec, so promotion must not
// assume the current one.
func ForStorageName(storageName string) (Codec, error) {
	switch {
	case strings.HasSuffix(storageName, Gzip{}.Suffix()):
		return Gzip{}, nil
	case strings.HasSuffix(storageName, (*Zstd)(nil).Suffix()):
		return sharedZstd()
	case strings.HasSuffix(storageName, LZ4{}.Suffix()):
		return LZ4{}, nil
	default:
		return nil, fmt.Errorf("no codec for %q", storageName)
	}
}

// Gzip writes standard gzip streams, readable with gunzip.
type Gzip struct{}

func (Gzip) Name() string   { return "gzip" }
func (Gzip) Suffix() string { return ".gz" }

func (Gzip) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	return buf.Bytes(), nil
}

func (Gzip) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip decompress: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip decompress: %w", err)
	}
	return out, nil
}

// Zstd reuses one encoder and one decoder; both are safe for concurrent
// EncodeAll/DecodeAll calls.
type Zstd struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstd() (*Zstd, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithZeroFrames(true))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Zstd{enc: enc, dec: dec}, nil
}

func (*Zstd) Name() string   { return "zstd" }
func (*Zstd) Suffix() string { return ".zst" }

func (z *Zstd) Compress(data []byte) ([]byte, error) {
	return z.enc.EncodeAll(data, nil), nil
}

func (z *Zstd) Decompress(data []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}

// LZ4 uses the frame format so cold files are self-describing and can be
// inspected with the lz4 CLI.
type LZ4 struct{}

func (LZ4) Name() string   { return "lz4" }
func (LZ4) Suffix() string { return ".lz4" }

func (LZ4) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buf.Bytes(), nil
}

func (LZ4) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return out, nil
}
