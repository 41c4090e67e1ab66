package datasource

import (
	"testing"

	"crashwrangle/internal/datasource/file"
	"crashwrangle/internal/datasource/httpds"
)

func TestNew(t *testing.T) {
	if _, ok := New("https://example.com/rows.csv").(*httpds.Source); !ok {
		t.Fatalf("URL input did not yield *httpds.Source")
	}
	for _, in := range []string{"crashes.csv", "/tmp/crashes.csv.gz", "C:/data/crashes.csv"} {
		if _, ok := New(in).(*file.Local); !ok {
			t.Fatalf("New(%q) did not yield *file.Local", in)
		}
	}
}
