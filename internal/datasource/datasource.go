// Package datasource picks the input source for a -input_csv value.
package datasource

import (
	"context"
	"io"

	"crashwrangle/internal/datasource/file"
	"crashwrangle/internal/datasource/httpds"
)

// Source is anything that can be opened for reading.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// New returns an HTTP source for http(s) URLs and a local file otherwise.
func New(input string) Source {
	if httpds.IsURL(input) {
		return httpds.NewSource(input, httpds.Config{})
	}
	return file.NewLocal(input)
}
