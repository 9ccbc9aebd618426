// Package fetcher retrieves single pages over a shared colly collector and
// hands back parsed documents. It performs no retries and no caching; both
// policies belong to the caller.
package fetcher

import (
	"bytes"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/crawldata/bookscraper/config"
	"github.com/gocolly/colly/v2"
)

// Observer receives per-request notifications, typically a metrics bundle.
type Observer interface {
	IncRequest(phase string)
	ObserveDuration(d time.Duration)
}

// Fetcher issues one GET per Fetch call. The collector carries the session
// state shared across a run: transport, identification header, request
// timeout, and the global minimum spacing between requests.
type Fetcher struct {
	collector *colly.Collector
	observer  Observer
	logger    *slog.Logger

	// Fetch is serialized; doc and err capture the callbacks' outcome
	// for the in-flight request.
	mu  sync.Mutex
	doc *goquery.Document
	err error
}

// New builds a fetcher configured from cfg. The observer may be nil.
func New(cfg *config.Config, observer Observer, logger *slog.Logger) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}
	if logger == nil {
		logger = slog.Default()
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	f := &Fetcher{
		collector: collector,
		observer:  observer,
		logger:    logger,
	}
	f.registerHandlers()
	return f, nil
}

// Fetch performs a single GET and parses the response body. A non-2xx status
// or transport failure returns a classified error; the caller decides whether
// that ends the crawl or only skips an item.
func (f *Fetcher) Fetch(rawURL string) (*goquery.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.doc = nil
	f.err = nil

	if err := f.collector.Visit(rawURL); err != nil {
		if f.err != nil {
			return nil, f.err
		}
		return nil, Classify(err, 0)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.doc == nil {
		return nil, fmt.Errorf("no response received for %s", rawURL)
	}
	return f.doc, nil
}

// WithTransport replaces the underlying transport. Tests use this to inject
// a mock round tripper.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

func (f *Fetcher) registerHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		if f.observer != nil {
			f.observer.IncRequest("started")
		}
		f.logger.Debug("fetching page", slog.String("url", r.URL.String()))
	})

	f.collector.OnResponse(func(r *colly.Response) {
		if f.observer != nil {
			if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
				f.observer.ObserveDuration(time.Since(start))
			}
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			f.err = fmt.Errorf("parse %s: %w", r.Request.URL, err)
			return
		}
		f.doc = doc
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
			if f.observer != nil {
				if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
					f.observer.ObserveDuration(time.Since(start))
				}
			}
		}
		f.err = Classify(err, statusCode)
	})
}
