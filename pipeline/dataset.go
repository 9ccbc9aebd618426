package pipeline

import (
	"sort"
	"strconv"

	"github.com/crawldata/bookscraper/models"
)

// FixedColumns is the invariant leading column order of every dataset. The
// dynamic attribute columns follow in first-seen order.
var FixedColumns = []string{"title", "price", "rating", "availability", "description", "url"}

// Dataset is the tabular projection of a crawl result. Rows are cell maps
// keyed by column name; a column absent from a row is a missing value, which
// the serializers render as an explicit marker (empty CSV cell, JSON null)
// rather than omitting the column.
type Dataset struct {
	Columns []string
	Rows    []map[string]string
}

// BuildDataset flattens records into rows and columns. Dynamic attribute
// keys become sparse columns, present only on the rows that carried them.
// Within one record, new attribute columns are discovered in sorted key
// order so the layout is deterministic.
func BuildDataset(books []*models.Book) *Dataset {
	columns := make([]string, len(FixedColumns))
	copy(columns, FixedColumns)

	known := make(map[string]struct{}, len(FixedColumns))
	for _, col := range FixedColumns {
		known[col] = struct{}{}
	}

	rows := make([]map[string]string, 0, len(books))
	for _, book := range books {
		row := map[string]string{
			"title":        book.Title,
			"price":        strconv.FormatFloat(book.Price, 'f', 2, 64),
			"rating":       book.Rating,
			"availability": book.Availability,
			"description":  book.Description,
			"url":          book.URL,
		}
		for _, key := range sortedKeys(book.Attributes) {
			if _, ok := known[key]; !ok {
				known[key] = struct{}{}
				columns = append(columns, key)
			}
			row[key] = book.Attributes[key]
		}
		rows = append(rows, row)
	}

	return &Dataset{Columns: columns, Rows: rows}
}

// Clone returns a deep copy; cleaning operates on copies so the crawl's
// dataset stays untouched.
func (d *Dataset) Clone() *Dataset {
	columns := make([]string, len(d.Columns))
	copy(columns, d.Columns)

	rows := make([]map[string]string, len(d.Rows))
	for i, row := range d.Rows {
		clone := make(map[string]string, len(row))
		for k, v := range row {
			clone[k] = v
		}
		rows[i] = clone
	}
	return &Dataset{Columns: columns, Rows: rows}
}

// Len reports the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
