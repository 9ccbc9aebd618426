package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// OutputWriter defines the interface for dataset output.
type OutputWriter interface {
	Write(ds *Dataset) error
	Close() error
	Validate() error
}

// CSVWriter serializes a dataset as a header row plus one quoted row per
// record. Missing cells become empty fields.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
	wrote  bool
}

// NewCSVWriter initialises a CSV writer. The header is written together with
// the dataset because the column set is only known at run end.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: csv.NewWriter(f),
	}, nil
}

// Write emits the full dataset. One call per run.
func (cw *CSVWriter) Write(ds *Dataset) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.wrote {
		return fmt.Errorf("csv: dataset already written")
	}
	cw.wrote = true

	if err := cw.writer.Write(ds.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, col := range ds.Columns {
			record[i] = row[col] // absent cell -> empty field, the CSV missing marker
		}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has content.
func (cw *CSVWriter) Validate() error {
	info, err := cw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// JSONWriter serializes a dataset as a single array-of-objects document.
// Missing cells become explicit nulls so every object carries every column.
type JSONWriter struct {
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
	wrote  bool
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	return &JSONWriter{
		file:   f,
		writer: bufio.NewWriter(f),
	}, nil
}

// Write emits the full dataset. One call per run.
func (jw *JSONWriter) Write(ds *Dataset) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.wrote {
		return fmt.Errorf("json: dataset already written")
	}
	jw.wrote = true

	objects := make([]map[string]any, len(ds.Rows))
	for i, row := range ds.Rows {
		object := make(map[string]any, len(ds.Columns))
		for _, col := range ds.Columns {
			if value, ok := row[col]; ok {
				object[col] = value
			} else {
				object[col] = nil
			}
		}
		objects[i] = object
	}

	encoded, err := json.MarshalIndent(objects, "", "    ")
	if err != nil {
		return fmt.Errorf("encode json records: %w", err)
	}
	if _, err := jw.writer.Write(encoded); err != nil {
		return fmt.Errorf("write json records: %w", err)
	}
	if err := jw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write json records: %w", err)
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	info, err := jw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("json file is empty")
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
