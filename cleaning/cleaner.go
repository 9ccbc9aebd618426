// Package cleaning implements the downstream cleaning stage over crawl
// datasets: missing-value imputation, IQR outlier handling, categorical
// encoding, and numeric normalization. It consumes the tabular dataset the
// crawl produces and never reaches back into the crawl itself.
package cleaning

import (
	"log/slog"
	"sort"
	"strconv"

	"github.com/crawldata/bookscraper/parser"
	"github.com/crawldata/bookscraper/pipeline"
)

// NoDescription fills records whose description was present but empty.
const NoDescription = "No description available"

// identityColumns are never imputed by mode, encoded, or normalized.
var identityColumns = map[string]struct{}{
	"title":       {},
	"description": {},
	"url":         {},
	"rating":      {},
}

// Cleaner runs the cleaning steps over a dataset copy.
type Cleaner struct {
	logger *slog.Logger
}

// New builds a cleaner with an injected logger.
func New(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger}
}

// Run executes the full cleaning sequence on a copy of ds and returns the
// cleaned dataset together with the outlier report. When reportPath is
// non-empty the report is also written there.
func (c *Cleaner) Run(ds *pipeline.Dataset, reportPath string) (*pipeline.Dataset, OutlierReport, error) {
	cleaned := ds.Clone()

	c.HandleMissingValues(cleaned)

	report := c.DetectOutliers(cleaned)
	if reportPath != "" {
		if err := WriteReport(reportPath, report); err != nil {
			return nil, nil, err
		}
	}
	c.RemoveOutliers(cleaned, report)

	baseNumeric := numericColumns(cleaned)
	c.EncodeCategoricals(cleaned)
	c.NormalizeNumeric(cleaned, baseNumeric)

	return cleaned, report, nil
}

// HandleMissingValues imputes absent or empty cells in place: descriptions
// get the sentinel, ratings the column mode, numeric columns their median,
// and remaining categorical columns their mode.
func (c *Cleaner) HandleMissingValues(ds *pipeline.Dataset) {
	fillColumn(ds, "description", func([]string) string { return NoDescription })

	fillColumn(ds, "rating", func(present []string) string {
		if m, ok := mode(present); ok {
			return m
		}
		return parser.NoRating
	})

	numeric := make(map[string]struct{})
	for _, col := range numericColumns(ds) {
		numeric[col] = struct{}{}
		fillColumn(ds, col, func(present []string) string {
			return formatFloat(median(toFloats(present)))
		})
	}

	for _, col := range ds.Columns {
		if _, ok := identityColumns[col]; ok {
			continue
		}
		if _, ok := numeric[col]; ok {
			continue
		}
		fillColumn(ds, col, func(present []string) string {
			if m, ok := mode(present); ok {
				return m
			}
			return "Unknown"
		})
	}
}

// EncodeCategoricals appends a rating_encoded column and one-hot encodes
// categorical columns with a small number of distinct values. The first
// value of each encoded column is dropped as the implied baseline.
func (c *Cleaner) EncodeCategoricals(ds *pipeline.Dataset) {
	numeric := make(map[string]struct{})
	for _, col := range numericColumns(ds) {
		numeric[col] = struct{}{}
	}

	addColumn(ds, "rating_encoded", func(row map[string]string) (string, bool) {
		return strconv.Itoa(parser.RatingToNumeric(row["rating"])), true
	})

	for _, col := range snapshotColumns(ds) {
		if _, ok := identityColumns[col]; ok {
			continue
		}
		if _, ok := numeric[col]; ok {
			continue
		}
		if col == "rating_encoded" {
			continue
		}

		distinct := distinctValues(ds, col)
		if len(distinct) < 2 || len(distinct) > 10 {
			continue
		}

		// drop the first category as the baseline
		for _, value := range distinct[1:] {
			value := value
			name := col + "_" + parser.NormalizeAttributeKey(value)
			addColumn(ds, name, func(row map[string]string) (string, bool) {
				cell, ok := row[col]
				if !ok {
					return "", false
				}
				if cell == value {
					return "1", true
				}
				return "0", true
			})
		}
		c.logger.Info("one-hot encoded column", "column", col, "categories", len(distinct))
	}
}

// NormalizeNumeric appends standardized (z-score) and min-max normalized
// companions for each base numeric column with more than one distinct value.
func (c *Cleaner) NormalizeNumeric(ds *pipeline.Dataset, columns []string) {
	for _, col := range columns {
		values := toFloats(presentValues(ds, col))
		if len(values) < 2 {
			continue
		}

		minVal, maxVal := values[0], values[0]
		for _, v := range values {
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
		}
		if minVal == maxVal {
			continue
		}

		m := mean(values)
		sd := stddev(values)

		col := col
		addColumn(ds, col+"_standardized", func(row map[string]string) (string, bool) {
			v, ok := cellFloat(row, col)
			if !ok || sd == 0 {
				return "", false
			}
			return formatFloat((v - m) / sd), true
		})
		addColumn(ds, col+"_normalized", func(row map[string]string) (string, bool) {
			v, ok := cellFloat(row, col)
			if !ok {
				return "", false
			}
			return formatFloat((v - minVal) / (maxVal - minVal)), true
		})
		c.logger.Info("normalized column", "column", col)
	}
}

// fillColumn replaces absent or empty cells of col using fill, which
// receives the present values. Columns not in the dataset are ignored.
func fillColumn(ds *pipeline.Dataset, col string, fill func(present []string) string) {
	if !hasColumn(ds, col) {
		return
	}

	present := presentValues(ds, col)
	var replacement string
	computed := false

	for _, row := range ds.Rows {
		if value, ok := row[col]; ok && value != "" {
			continue
		}
		if !computed {
			replacement = fill(present)
			computed = true
		}
		row[col] = replacement
	}
}

// addColumn appends a derived column; cells where derive reports false stay
// missing.
func addColumn(ds *pipeline.Dataset, name string, derive func(row map[string]string) (string, bool)) {
	for _, row := range ds.Rows {
		if value, ok := derive(row); ok {
			row[name] = value
		}
	}
	ds.Columns = append(ds.Columns, name)
}

// snapshotColumns copies the column list so iteration is stable while
// derived columns are appended.
func snapshotColumns(ds *pipeline.Dataset) []string {
	cols := make([]string, len(ds.Columns))
	copy(cols, ds.Columns)
	return cols
}

func hasColumn(ds *pipeline.Dataset, col string) bool {
	for _, c := range ds.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// presentValues returns the non-empty cells of a column in row order.
func presentValues(ds *pipeline.Dataset, col string) []string {
	var values []string
	for _, row := range ds.Rows {
		if value, ok := row[col]; ok && value != "" {
			values = append(values, value)
		}
	}
	return values
}

// numericColumns returns the dataset columns whose present cells all parse
// as floats, in column order.
func numericColumns(ds *pipeline.Dataset) []string {
	var cols []string
	for _, col := range ds.Columns {
		if _, ok := identityColumns[col]; ok {
			continue
		}
		if isNumericColumn(presentValues(ds, col)) {
			cols = append(cols, col)
		}
	}
	return cols
}

func distinctValues(ds *pipeline.Dataset, col string) []string {
	seen := make(map[string]struct{})
	for _, value := range presentValues(ds, col) {
		seen[value] = struct{}{}
	}
	values := make([]string, 0, len(seen))
	for value := range seen {
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}

func cellFloat(row map[string]string, col string) (float64, bool) {
	value, ok := row[col]
	if !ok || value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
