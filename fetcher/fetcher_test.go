package fetcher

import (
	"errors"
	"log/slog"
	"net"
	"testing"

	"github.com/crawldata/bookscraper/config"
	"github.com/jarcoal/httpmock"
)

func newTestFetcher(t *testing.T) (*Fetcher, *httpmock.MockTransport) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://example.test/"
	cfg.Delay = 0
	cfg.RandomDelay = 0

	f, err := New(cfg, nil, slog.Default())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}

	transport := httpmock.NewMockTransport()
	f.WithTransport(transport)
	return f, transport
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func TestFetchParsesDocument(t *testing.T) {
	f, transport := newTestFetcher(t)
	transport.RegisterResponder("GET", "http://example.test/catalogue/page-1.html",
		htmlResponder(`<html><body><h1>A Book</h1></body></html>`))

	doc, err := f.Fetch("http://example.test/catalogue/page-1.html")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := doc.Find("h1").Text(); got != "A Book" {
		t.Fatalf("h1 = %q, want %q", got, "A Book")
	}
}

func TestFetchClassifiesStatusCodes(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: 403, expected: "forbidden"},
		{status: 404, expected: "not_found"},
		{status: 429, expected: "rate_limited"},
		{status: 500, expected: "http_status"},
	}

	for _, tt := range tests {
		f, transport := newTestFetcher(t)
		transport.RegisterResponder("GET", "http://example.test/missing.html",
			httpmock.NewStringResponder(tt.status, ""))

		_, err := f.Fetch("http://example.test/missing.html")
		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		if got := ErrorTypeLabel(err); got != tt.expected {
			t.Fatalf("status %d classified as %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestFetchClassifiesTransportFailure(t *testing.T) {
	f, transport := newTestFetcher(t)
	cause := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	transport.RegisterResponder("GET", "http://example.test/down.html",
		httpmock.NewErrorResponder(cause))

	_, err := f.Fetch("http://example.test/down.html")
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if got := ErrorTypeLabel(err); got != "connection" {
		t.Fatalf("classified as %q, want %q", got, "connection")
	}
}

func TestFetchNeverRetriesOrCaches(t *testing.T) {
	f, transport := newTestFetcher(t)
	url := "http://example.test/catalogue/page-1.html"
	transport.RegisterResponder("GET", url, htmlResponder("<html></html>"))

	if _, err := f.Fetch(url); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := f.Fetch(url); err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	info := transport.GetCallCountInfo()
	if got := info["GET "+url]; got != 2 {
		t.Fatalf("round trips = %d, want 2 (one per call, no caching)", got)
	}

	f2, transport2 := newTestFetcher(t)
	transport2.RegisterResponder("GET", "http://example.test/fail.html",
		httpmock.NewStringResponder(500, ""))
	if _, err := f2.Fetch("http://example.test/fail.html"); err == nil {
		t.Fatalf("expected error")
	}
	if got := transport2.GetCallCountInfo()["GET http://example.test/fail.html"]; got != 1 {
		t.Fatalf("round trips = %d, want 1 (no retries)", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: 403, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: 404, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: 429, expected: "rate_limited"},
		{name: "server error", err: nil, statusCode: 503, expected: "http_status"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorTypeLabel(Classify(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("Classify(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}
