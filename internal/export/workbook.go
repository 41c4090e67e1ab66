package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"crashwrangle/internal/report"
)

// WorkbookFile is the optional summary workbook's name.
const WorkbookFile = "summary.xlsx"

// maxSheetName is the xlsx sheet name limit.
const maxSheetName = 31

// WorkbookWriter collects report artifacts into one xlsx file, one sheet
// per artifact. Header rows stay text; numeric cells are stored as numbers.
type WorkbookWriter struct{}

// SheetName derives a sheet name from an artifact file name.
func SheetName(file string) string {
	name := strings.TrimSuffix(file, ".csv")
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

// Write saves arts to path.
func (WorkbookWriter) Write(path string, arts []report.Artifact) error {
	if len(arts) == 0 {
		return fmt.Errorf("workbook %s: no artifacts", path)
	}
	f := excelize.NewFile()
	defer f.Close()

	first := f.GetSheetName(0)
	for i, a := range arts {
		sheet := SheetName(a.Name)
		if i == 0 {
			if err := f.SetSheetName(first, sheet); err != nil {
				return fmt.Errorf("workbook sheet %s: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("workbook sheet %s: %w", sheet, err)
		}
		for ri, rec := range a.Records {
			cell, err := excelize.CoordinatesToCellName(1, ri+1)
			if err != nil {
				return err
			}
			row := make([]interface{}, len(rec))
			for ci, s := range rec {
				row[ci] = cellValue(s, ri == 0)
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return fmt.Errorf("workbook %s row %d: %w", sheet, ri+1, err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func cellValue(s string, header bool) interface{} {
	if header || s == "" {
		return s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return s
}
