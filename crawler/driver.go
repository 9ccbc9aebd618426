// Package crawler drives the paginated crawl: fetch a listing page, walk its
// item-cards through detail extraction, then follow the next-page control
// until it disappears or a configured page bound is reached.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/crawldata/bookscraper/config"
	"github.com/crawldata/bookscraper/fetcher"
	"github.com/crawldata/bookscraper/models"
	"github.com/crawldata/bookscraper/parser"
	"github.com/crawldata/bookscraper/pipeline"
)

// PageFetcher is the driver's view of the HTTP layer.
type PageFetcher interface {
	Fetch(url string) (*goquery.Document, error)
}

// state enumerates the crawl state machine. The driver is the only component
// holding global crawl state; every transition is observable in the result
// counters.
type state int

const (
	stateStart state = iota
	stateFetchingListing
	stateExtractingItems
	stateCheckingContinuation
	stateDone
)

// Driver orchestrates the crawl over its collaborators.
type Driver struct {
	cfg     *config.Config
	fetcher PageFetcher
	sink    *pipeline.Sink
	metrics *Metrics
	logger  *slog.Logger

	// seen tracks already-discovered detail URLs so that a pagination bug on
	// the site surfaces as a logged, counted duplicate. Discovery still
	// proceeds: the crawler never deduplicates records.
	seen *lru.Cache[string, struct{}]
}

// NewDriver builds a driver. The metrics bundle may be nil.
func NewDriver(cfg *config.Config, pf PageFetcher, sink *pipeline.Sink, metrics *Metrics, logger *slog.Logger) (*Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	seen, err := lru.New[string, struct{}](cfg.SeenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("seen cache: %w", err)
	}
	return &Driver{
		cfg:     cfg,
		fetcher: pf,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
		seen:    seen,
	}, nil
}

// Run executes the crawl to completion and always returns a result. Page and
// item failures never propagate as errors: a listing failure ends the crawl
// with whatever was collected, an item failure is counted and skipped. An
// empty result is the caller's failure signal.
func (d *Driver) Run(ctx context.Context) *models.CrawlResult {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.CrawlResult{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}

	page := 1
	var listing *goquery.Document

	st := stateStart
	for st != stateDone {
		if ctx.Err() != nil {
			d.logger.Info("crawl cancelled", slog.Int("page", page))
			break
		}

		switch st {
		case stateStart:
			st = stateFetchingListing

		case stateFetchingListing:
			if d.cfg.MaxPages > 0 && page > d.cfg.MaxPages {
				d.logger.Info("page bound reached", slog.Int("max_pages", d.cfg.MaxPages))
				st = stateDone
				continue
			}

			listingURL := d.listingURL(page)
			d.logger.Info("fetching listing page",
				slog.Int("page", page),
				slog.String("url", listingURL),
			)

			doc, err := d.fetcher.Fetch(listingURL)
			if err != nil {
				// Without the current listing no further pages can be
				// discovered, so a listing failure stops the whole crawl.
				category := fetcher.ErrorTypeLabel(err)
				result.ErrorsByType[category]++
				result.FailedURLs = append(result.FailedURLs, listingURL)
				d.metrics.IncError(category)
				d.logger.Error("listing fetch failed, stopping crawl",
					slog.String("url", listingURL),
					slog.Int("page", page),
					slog.String("category", category),
					slog.Any("error", err),
				)
				st = stateDone
				continue
			}

			listing = doc
			result.PageCount++
			d.metrics.IncPages()
			st = stateExtractingItems

		case stateExtractingItems:
			d.extractItems(ctx, listing, page, result)
			st = stateCheckingContinuation

		case stateCheckingContinuation:
			if !parser.HasNextPage(listing) {
				d.logger.Info("no next-page control, crawl complete", slog.Int("pages", result.PageCount))
				st = stateDone
				continue
			}
			page++
			d.sleep(ctx, d.cfg.PageDelay)
			st = stateFetchingListing
		}
	}

	result.Books = d.sink.Finalize()
	result.EndTime = time.Now()
	return result
}

// extractItems walks every listing entry through a detail fetch and
// extraction. Item-level failures are logged with enough context to
// reproduce and converted into skips.
func (d *Driver) extractItems(ctx context.Context, listing *goquery.Document, page int, result *models.CrawlResult) {
	entries := parser.ExtractListing(listing, d.cfg.BaseURL)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}

		if _, dup := d.seen.Get(entry); dup {
			result.DuplicateURLs++
			d.metrics.IncDuplicate()
			d.logger.Warn("detail URL discovered twice",
				slog.String("url", entry),
				slog.Int("page", page),
			)
		}
		d.seen.Add(entry, struct{}{})

		doc, err := d.fetcher.Fetch(entry)
		if err != nil {
			category := fetcher.ErrorTypeLabel(err)
			result.SkippedItems++
			result.ErrorsByType[category]++
			result.FailedURLs = append(result.FailedURLs, entry)
			d.metrics.IncSkip(category)
			d.metrics.IncError(category)
			d.logger.Error("detail fetch failed, skipping item",
				slog.String("url", entry),
				slog.Int("page", page),
				slog.String("category", category),
				slog.Any("error", err),
			)
			continue
		}

		book, err := parser.ExtractDetail(doc, entry)
		if err != nil {
			result.SkippedItems++
			result.ErrorsByType["extraction"]++
			d.metrics.IncSkip("extraction")
			d.logger.Error("detail extraction failed, skipping item",
				slog.String("url", entry),
				slog.Int("page", page),
				slog.Any("error", err),
			)
			continue
		}

		if err := d.sink.Append(book); err != nil {
			d.logger.Error("sink append failed", slog.Any("error", err))
			return
		}
		result.ItemCount++
		d.metrics.IncItems()
		d.logger.Debug("extracted record",
			slog.String("title", book.Title),
			slog.String("url", book.URL),
		)
	}
}

func (d *Driver) listingURL(page int) string {
	return fmt.Sprintf("%s/catalogue/page-%d.html", strings.TrimRight(d.cfg.BaseURL, "/"), page)
}

func (d *Driver) sleep(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
