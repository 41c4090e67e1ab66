package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names written under the output directory.
const (
	SampleFile       = "sample_head.csv"
	ByBoroughFile    = "collisions_by_borough.csv"
	ByYearFile       = "collisions_by_year.csv"
	PivotFile        = "pivot_year_borough.csv"
	CorrelationFile  = "injury_correlation.csv"
	DescribeFile     = "injury_describe.csv"
	TopFactorsFile   = "top_contributing_factors_v1.csv"
	BoroughsFullFile = "collisions_by_borough_full.csv"
)

// Artifact is one named set of records.
type Artifact struct {
	Name    string // file name, e.g. ByBoroughFile
	Records [][]string
}

// WriteCSV writes records to dir/name and returns the path.
func WriteCSV(dir, name string, records [][]string) (string, error) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// WriteAll persists every artifact under dir, stopping at the first error.
func WriteAll(dir string, arts []Artifact) error {
	for _, a := range arts {
		if _, err := WriteCSV(dir, a.Name, a.Records); err != nil {
			return err
		}
	}
	return nil
}
