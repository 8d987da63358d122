package compress

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrUnsupportedKind indicates an unknown compression kind.
var ErrUnsupportedKind = errors.New("unsupported compression kind")

// Kind selects the stream compressor applied to backup artifacts.
type Kind string

const (
	// Gzip is the default and matches the .tar.gz / .sql.gz artifact layout.
	Gzip Kind = "gz"
	// Zstd is an opt-in alternative producing .tar.zst / .sql.zst artifacts.
	Zstd Kind = "zst"
)

// Valid reports whether k is a supported compression kind.
func (k Kind) Valid() bool {
	return k == Gzip || k == Zstd
}

// Ext returns the filename extension for the kind, without a leading dot.
func (k Kind) Ext() string {
	return string(k)
}

// NewWriter wraps w with the compressor for k. The caller must Close the
// returned writer before closing w so the trailer is flushed.
func NewWriter(k Kind, w io.Writer) (io.WriteCloser, error) {
	switch k {
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("create zstd writer: %w", err)
		}
		return enc, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, k)
	}
}

// NewReader wraps r with the decompressor for k.
func NewReader(k Kind, r io.Reader) (io.ReadCloser, error) {
	switch k {
	case Gzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return gz, nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, k)
	}
}
