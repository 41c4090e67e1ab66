// Package file implements a local filesystem-backed data source.
package file

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Local is a filesystem data source that opens files from the local disk.
// Sources ending in .gz, .zst or .xz are decompressed transparently.
type Local struct{ path string }

// NewLocal returns a new Local data source bound to the provided filesystem
// path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading and returns an io.ReadCloser.
//
// Behavior:
//   - If the context is already canceled at the time of the call, Open
//     returns the context error without touching the filesystem.
//   - Filesystem errors are wrapped with the path while still permitting
//     errors.Is checks (e.g., errors.Is(err, os.ErrNotExist)).
//   - A compressed file whose header cannot be read is an error here, not on
//     the first Read.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)
	rc, err := Decompress(f, Compression(l.path))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return rc, nil
}

// Compression returns the codec implied by the file extension: "gzip",
// "zstd", "xz", or "" for plain files.
func Compression(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return "gzip"
	case ".zst", ".zstd":
		return "zstd"
	case ".xz":
		return "xz"
	}
	return ""
}

// Decompress wraps rc in the decoder for codec. Closing the result closes
// rc. An unknown or empty codec returns rc unchanged.
func Decompress(rc io.ReadCloser, codec string) (io.ReadCloser, error) {
	switch codec {
	case "gzip":
		zr, err := gzip.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &stacked{Reader: zr, closers: []io.Closer{zr, rc}}, nil
	case "zstd":
		zr, err := zstd.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return &stacked{Reader: zr, closers: []io.Closer{zstdCloser{zr}, rc}}, nil
	case "xz":
		xr, err := xz.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("xz: %w", err)
		}
		return &stacked{Reader: xr, closers: []io.Closer{rc}}, nil
	}
	return rc, nil
}

// stacked reads from the outermost decoder and closes every layer in order.
type stacked struct {
	io.Reader
	closers []io.Closer
}

func (s *stacked) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// zstd.Decoder.Close returns nothing.
type zstdCloser struct{ d *zstd.Decoder }

func (z zstdCloser) Close() error { z.d.Close(); return nil }
