package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractListing returns the absolute detail URLs for every item-card on a
// catalog page, in document order, without deduplication. A page with zero
// item-cards returns an empty slice; that is the end-of-catalog state, not
// an error.
func ExtractListing(doc *goquery.Document, baseURL string) []string {
	base := strings.TrimRight(baseURL, "/")

	var entries []string
	doc.Find("article.product_pod").Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Find("h3 a").Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		entries = append(entries, resolveDetailURL(base, href))
	})
	return entries
}

// HasNextPage reports whether the listing page carries a next-page control.
func HasNextPage(doc *goquery.Document) bool {
	return doc.Find("li.next").Length() > 0
}

// resolveDetailURL re-roots a detail href under the catalog path. The site
// emits two shapes for the same item, "catalogue/<slug>/index.html" and
// "../../<slug>/index.html"; both must resolve to the same absolute URL.
func resolveDetailURL(base, href string) string {
	for strings.HasPrefix(href, "../") {
		href = strings.TrimPrefix(href, "../")
	}
	href = strings.TrimPrefix(href, "catalogue/")
	return base + "/catalogue/" + href
}
