package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "books.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}

	ds := BuildDataset(sampleBooks())
	if err := writer.Write(ds); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records=%d, want 3 (header + 2 rows)", len(records))
	}
	if records[0][0] != "title" || records[0][1] != "price" {
		t.Fatalf("unexpected header: %v", records[0])
	}

	// number_of_reviews is absent on row 1: the cell must exist and be empty.
	col := -1
	for i, name := range records[0] {
		if name == "number_of_reviews" {
			col = i
		}
	}
	if col < 0 {
		t.Fatalf("number_of_reviews column missing from header %v", records[0])
	}
	if records[1][col] != "" {
		t.Fatalf("missing cell=%q, want empty marker", records[1][col])
	}
	if records[2][col] != "4" {
		t.Fatalf("present cell=%q, want %q", records[2][col], "4")
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "books.json")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}

	ds := BuildDataset(sampleBooks())
	if err := writer.Write(ds); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}

	var objects []map[string]any
	if err := json.Unmarshal(raw, &objects); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("objects=%d, want 2", len(objects))
	}

	// Field names must match the CSV header exactly.
	for _, col := range ds.Columns {
		if _, ok := objects[0][col]; !ok {
			t.Fatalf("object missing column %q", col)
		}
	}

	// Missing cells serialize as explicit nulls.
	if objects[0]["number_of_reviews"] != nil {
		t.Fatalf("missing cell = %v, want null", objects[0]["number_of_reviews"])
	}
	if objects[1]["number_of_reviews"] != "4" {
		t.Fatalf("present cell = %v, want 4", objects[1]["number_of_reviews"])
	}
	if objects[0]["title"] != "Book 1" {
		t.Fatalf("title = %v", objects[0]["title"])
	}
}

func TestDualWriterWritesBoth(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "books.csv")
	jsonPath := filepath.Join(dir, "books.json")

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}

	if err := writer.Write(BuildDataset(sampleBooks())); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, path := range []string{csvPath, jsonPath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", path)
		}
	}
}

func TestWriteRejectsSecondCall(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewCSVWriter(filepath.Join(dir, "books.csv"))
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	defer writer.Close()

	ds := BuildDataset(sampleBooks())
	if err := writer.Write(ds); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := writer.Write(ds); err == nil {
		t.Fatalf("second write should fail")
	}
}
