package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/crawldata/bookscraper/models"
)

func TestSinkPreservesInsertionOrder(t *testing.T) {
	sink := NewSink()
	for i := 1; i <= 5; i++ {
		book := &models.Book{
			Title: fmt.Sprintf("Book %d", i),
			URL:   fmt.Sprintf("http://example.test/catalogue/book-%d/index.html", i),
		}
		if err := sink.Append(book); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	books := sink.Finalize()
	if len(books) != 5 {
		t.Fatalf("books=%d, want 5", len(books))
	}
	for i, book := range books {
		want := fmt.Sprintf("Book %d", i+1)
		if book.Title != want {
			t.Fatalf("books[%d].Title=%q, want %q", i, book.Title, want)
		}
	}
}

func TestSinkFinalizeIdempotent(t *testing.T) {
	sink := NewSink()
	if err := sink.Append(&models.Book{Title: "Only"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	first := sink.Finalize()
	second := sink.Finalize()

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("finalize sizes = %d, %d, want 1, 1", len(first), len(second))
	}
	if &first[0] != &second[0] {
		t.Fatalf("repeated finalize must return the same frozen sequence")
	}
}

func TestSinkRejectsAppendAfterFinalize(t *testing.T) {
	sink := NewSink()
	sink.Finalize()

	err := sink.Append(&models.Book{Title: "Late"})
	if !errors.Is(err, ErrSinkFinalized) {
		t.Fatalf("append after finalize = %v, want ErrSinkFinalized", err)
	}
	if got := len(sink.Finalize()); got != 0 {
		t.Fatalf("frozen length=%d, want 0", got)
	}
}
