// Package pipeline accumulates crawl records and projects them into a
// tabular dataset for the output writers and the downstream cleaning stage.
package pipeline

import (
	"errors"
	"sync"

	"github.com/crawldata/bookscraper/models"
)

// ErrSinkFinalized is returned when Append is called after Finalize.
var ErrSinkFinalized = errors.New("pipeline: sink finalized")

// Sink accumulates records in discovery order. It is purely additive:
// appended records are never mutated or removed.
type Sink struct {
	mu        sync.Mutex
	books     []*models.Book
	frozen    []*models.Book
	finalized bool
}

// NewSink returns an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Append adds a record to the end of the sequence.
func (s *Sink) Append(book *models.Book) error {
	if book == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return ErrSinkFinalized
	}
	s.books = append(s.books, book)
	return nil
}

// Finalize freezes the accumulated sequence and returns it. Repeated calls
// return the same frozen slice.
func (s *Sink) Finalize() []*models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.finalized {
		s.finalized = true
		s.frozen = make([]*models.Book, len(s.books))
		copy(s.frozen, s.books)
	}
	return s.frozen
}

// Len reports the number of accumulated records.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.books)
}
