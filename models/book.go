// Package models defines data structures shared across the crawler.
package models

import "time"

// Book is one extracted catalog record: a fixed core schema plus an open
// attribute map folded from the product information table on the detail page.
// URL is the record's natural key. Records are immutable once built.
type Book struct {
	Title        string            `json:"title"`
	Price        float64           `json:"price"`
	Rating       string            `json:"rating"`
	Availability string            `json:"availability"`
	Description  string            `json:"description"`
	URL          string            `json:"url"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// CrawlResult holds the records of a completed crawl in discovery order
// (listing-page order, then intra-page order) together with run accounting.
type CrawlResult struct {
	Books         []*Book
	StartTime     time.Time
	EndTime       time.Time
	PageCount     int
	ItemCount     int
	SkippedItems  int
	DuplicateURLs int
	FailedURLs    []string
	ErrorsByType  map[string]int
}

// Duration returns the wall-clock time of the crawl.
func (r *CrawlResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}
