package cleaning

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/crawldata/bookscraper/pipeline"
)

// OutlierStats describes the rows flagged for one numeric column.
type OutlierStats struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Indices    []int   `json:"indices"`
}

// OutlierReport maps numeric column names to their flagged rows. Columns
// without outliers are omitted.
type OutlierReport map[string]OutlierStats

// DetectOutliers flags rows outside the 1.5×IQR fences of each numeric
// column. Row indices refer to the dataset passed in.
func (c *Cleaner) DetectOutliers(ds *pipeline.Dataset) OutlierReport {
	report := make(OutlierReport)
	if ds.Len() == 0 {
		return report
	}

	for _, col := range numericColumns(ds) {
		values := toFloats(presentValues(ds, col))
		if len(values) == 0 {
			continue
		}

		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)

		q1 := quantile(sorted, 0.25)
		q3 := quantile(sorted, 0.75)
		iqr := q3 - q1
		lower := q1 - 1.5*iqr
		upper := q3 + 1.5*iqr

		var indices []int
		for i, row := range ds.Rows {
			value, ok := cellFloat(row, col)
			if !ok {
				continue
			}
			if value < lower || value > upper {
				indices = append(indices, i)
			}
		}
		if len(indices) == 0 {
			continue
		}

		report[col] = OutlierStats{
			Count:      len(indices),
			Percentage: float64(len(indices)) / float64(ds.Len()) * 100,
			Indices:    indices,
		}
		c.logger.Info("outliers detected",
			"column", col,
			"count", len(indices),
			"percentage", report[col].Percentage,
		)
	}
	return report
}

// RemoveOutliers drops every row flagged by the report, preserving the
// order of the remaining rows.
func (c *Cleaner) RemoveOutliers(ds *pipeline.Dataset, report OutlierReport) {
	if len(report) == 0 {
		return
	}

	drop := make(map[int]struct{})
	for _, stats := range report {
		for _, index := range stats.Indices {
			drop[index] = struct{}{}
		}
	}

	kept := ds.Rows[:0]
	for i, row := range ds.Rows {
		if _, ok := drop[i]; ok {
			continue
		}
		kept = append(kept, row)
	}
	removed := len(ds.Rows) - len(kept)
	ds.Rows = kept

	c.logger.Info("outlier rows removed", "removed", removed, "remaining", len(ds.Rows))
}

// WriteReport writes the outlier report as an indented JSON object keyed by
// column name. The file is written once per cleaning run, overwriting any
// previous report.
func WriteReport(path string, report OutlierReport) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	encoded, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return fmt.Errorf("encode outlier report: %w", err)
	}
	encoded = append(encoded, '\n')

	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write outlier report: %w", err)
	}
	return nil
}
