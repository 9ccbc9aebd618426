package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func buildListingPage(hrefs []string, hasNext bool) string {
	var builder strings.Builder
	builder.WriteString(`<html><body><section class="products">`)
	for i, href := range hrefs {
		fmt.Fprintf(&builder, `<article class="product_pod">`)
		fmt.Fprintf(&builder, `<h3><a href=%q title="Book %d">Book %d</a></h3>`, href, i+1, i+1)
		builder.WriteString(`<p class="price_color">&pound;10.00</p>`)
		builder.WriteString(`</article>`)
	}
	if hasNext {
		builder.WriteString(`<li class="next"><a href="page-2.html">next</a></li>`)
	}
	builder.WriteString(`</section></body></html>`)
	return builder.String()
}

func TestExtractListingPreservesCountAndOrder(t *testing.T) {
	hrefs := []string{
		"catalogue/book-one_1/index.html",
		"catalogue/book-two_2/index.html",
		"catalogue/book-three_3/index.html",
	}
	doc := parseHTML(t, buildListingPage(hrefs, true))

	entries := ExtractListing(doc, "http://example.test")
	if len(entries) != 3 {
		t.Fatalf("entries=%d, want 3", len(entries))
	}

	want := []string{
		"http://example.test/catalogue/book-one_1/index.html",
		"http://example.test/catalogue/book-two_2/index.html",
		"http://example.test/catalogue/book-three_3/index.html",
	}
	for i, entry := range entries {
		if entry != want[i] {
			t.Fatalf("entries[%d]=%q, want %q", i, entry, want[i])
		}
		if !strings.HasPrefix(entry, "http://") {
			t.Fatalf("entries[%d]=%q is not absolute", i, entry)
		}
	}
}

func TestExtractListingResolvesBothHrefShapes(t *testing.T) {
	doc := parseHTML(t, buildListingPage([]string{
		"catalogue/a-light-in-the-attic_1000/index.html",
		"../../a-light-in-the-attic_1000/index.html",
	}, false))

	entries := ExtractListing(doc, "http://example.test/")
	if len(entries) != 2 {
		t.Fatalf("entries=%d, want 2", len(entries))
	}
	if entries[0] != entries[1] {
		t.Fatalf("href shapes resolved differently: %q vs %q", entries[0], entries[1])
	}
	want := "http://example.test/catalogue/a-light-in-the-attic_1000/index.html"
	if entries[0] != want {
		t.Fatalf("resolved=%q, want %q", entries[0], want)
	}
}

func TestExtractListingEmptyPage(t *testing.T) {
	doc := parseHTML(t, `<html><body><section class="products"></section></body></html>`)
	entries := ExtractListing(doc, "http://example.test")
	if len(entries) != 0 {
		t.Fatalf("entries=%d, want 0 for a page without item-cards", len(entries))
	}
}

func TestHasNextPage(t *testing.T) {
	withNext := parseHTML(t, buildListingPage([]string{"catalogue/x_1/index.html"}, true))
	if !HasNextPage(withNext) {
		t.Fatalf("expected next-page control to be detected")
	}

	withoutNext := parseHTML(t, buildListingPage([]string{"catalogue/x_1/index.html"}, false))
	if HasNextPage(withoutNext) {
		t.Fatalf("did not expect a next-page control")
	}
}
