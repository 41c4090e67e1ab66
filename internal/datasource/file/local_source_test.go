package file

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

const crashCSV = "CRASH DATE,BOROUGH\n09/11/2021,BROOKLYN\n"

// writeCompressed writes crashCSV to dir/name through the encoder wrap
// returns.
func writeCompressed(t *testing.T, dir, name string, wrap func(io.Writer) (io.WriteCloser, error)) string {
	t.Helper()
	var buf bytes.Buffer
	w, err := wrap(&buf)
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}
	if _, err := io.WriteString(w, crashCSV); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	return p
}

// TestLocalOpen covers plain and compressed sources, missing files, corrupt
// archives, and a pre-canceled context.
// Table-driven to make behavior clear and extensible.
func TestLocalOpen(t *testing.T) {
	t.Parallel()

	type tc struct {
		name            string
		prepare         func(t *testing.T) string // returns path to open
		makeCtx         func(t *testing.T) context.Context
		wantErrIs       error  // checked via errors.Is
		wantErrContains string // substring expected in error message
		wantContent     string // if non-empty, verifies read content on success
	}

	cases := []tc{
		{
			name: "success_reads_content",
			prepare: func(t *testing.T) string {
				t.Helper()
				dir := t.TempDir()
				p := filepath.Join(dir, "crashes.csv")
				if err := os.WriteFile(p, []byte(crashCSV), 0o644); err != nil {
					t.Fatalf("write test file: %v", err)
				}
				return p
			},
			makeCtx:     func(t *testing.T) context.Context { return context.Background() },
			wantContent: crashCSV,
		},
		{
			name: "gzip_is_decompressed",
			prepare: func(t *testing.T) string {
				return writeCompressed(t, t.TempDir(), "crashes.csv.gz", func(w io.Writer) (io.WriteCloser, error) {
					return gzip.NewWriter(w), nil
				})
			},
			makeCtx:     func(t *testing.T) context.Context { return context.Background() },
			wantContent: crashCSV,
		},
		{
			name: "zstd_is_decompressed",
			prepare: func(t *testing.T) string {
				return writeCompressed(t, t.TempDir(), "crashes.csv.zst", func(w io.Writer) (io.WriteCloser, error) {
					return zstd.NewWriter(w)
				})
			},
			makeCtx:     func(t *testing.T) context.Context { return context.Background() },
			wantContent: crashCSV,
		},
		{
			name: "xz_is_decompressed",
			prepare: func(t *testing.T) string {
				return writeCompressed(t, t.TempDir(), "crashes.csv.xz", func(w io.Writer) (io.WriteCloser, error) {
					return xz.NewWriter(w)
				})
			},
			makeCtx:     func(t *testing.T) context.Context { return context.Background() },
			wantContent: crashCSV,
		},
		{
			name: "corrupt_gzip_fails_at_open",
			prepare: func(t *testing.T) string {
				t.Helper()
				p := filepath.Join(t.TempDir(), "crashes.csv.gz")
				if err := os.WriteFile(p, []byte("not gzip at all"), 0o644); err != nil {
					t.Fatalf("write test file: %v", err)
				}
				return p
			},
			makeCtx:         func(t *testing.T) context.Context { return context.Background() },
			wantErrIs:       gzip.ErrHeader,
			wantErrContains: "gzip",
		},
		{
			name: "missing_file_errors_with_wrapping",
			prepare: func(t *testing.T) string {
				t.Helper()
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			makeCtx:         func(t *testing.T) context.Context { return context.Background() },
			wantErrIs:       os.ErrNotExist,
			wantErrContains: "open ",
		},
		{
			name: "pre_canceled_context_short_circuits",
			prepare: func(t *testing.T) string {
				t.Helper()
				dir := t.TempDir()
				p := filepath.Join(dir, "crashes.csv")
				if err := os.WriteFile(p, []byte("ignored"), 0o644); err != nil {
					t.Fatalf("write test file: %v", err)
				}
				return p
			},
			makeCtx: func(t *testing.T) context.Context {
				t.Helper()
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			wantErrIs: context.Canceled,
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			path := c.prepare(t)
			ctx := c.makeCtx(t)

			rc, err := NewLocal(path).Open(ctx)

			// Error expectations.
			if c.wantErrIs != nil {
				if err == nil {
					t.Fatalf("expected error %v, got nil", c.wantErrIs)
				}
				if !errors.Is(err, c.wantErrIs) {
					t.Fatalf("errors.Is(%v, %v) = false", err, c.wantErrIs)
				}
				if c.wantErrContains != "" && !strings.Contains(err.Error(), c.wantErrContains) {
					t.Fatalf("error %q does not contain substring %q", err, c.wantErrContains)
				}
				// Ensure no ReadCloser was returned on error.
				if rc != nil {
					_ = rc.Close()
					t.Fatalf("got non-nil ReadCloser on error: %T", rc)
				}
				return
			}

			// Success expectations.
			if err != nil {
				t.Fatalf("Open() unexpected error: %v", err)
			}
			defer rc.Close()

			if c.wantContent != "" {
				got, rerr := io.ReadAll(rc)
				if rerr != nil {
					t.Fatalf("reading: %v", rerr)
				}
				if string(got) != c.wantContent {
					t.Fatalf("content mismatch: got %q, want %q", string(got), c.wantContent)
				}
			}
		})
	}
}

func TestCompression(t *testing.T) {
	cases := map[string]string{
		"a.csv":     "",
		"a.CSV.GZ":  "gzip",
		"a.csv.zst": "zstd",
		"a.csv.xz":  "xz",
		"noext":     "",
	}
	for in, want := range cases {
		if got := Compression(in); got != want {
			t.Fatalf("Compression(%q) = %q; want %q", in, got, want)
		}
	}
}

// BenchmarkLocalOpen_Success measures the steady-state cost of opening a small file.
func BenchmarkLocalOpen_Success(b *testing.B) {
	dir := b.TempDir()
	p := filepath.Join(dir, "crashes.csv")
	if err := os.WriteFile(p, []byte(crashCSV), 0o644); err != nil {
		b.Fatalf("write test file: %v", err)
	}

	src := NewLocal(p)
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rc, err := src.Open(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if err := rc.Close(); err != nil {
			b.Fatal(err)
		}
	}
}
