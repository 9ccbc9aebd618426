package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/crawldata/bookscraper/models"
)

// ExtractDetail extracts the full record from a product detail page.
// Extraction is all-or-nothing: any missing required structural marker or
// unparseable price fails the whole record so that downstream cleaning can
// assume every emitted record carries the fixed fields.
func ExtractDetail(doc *goquery.Document, sourceURL string) (*models.Book, error) {
	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		return nil, errors.New("missing title marker")
	}

	priceSel := doc.Find("p.price_color").First()
	if priceSel.Length() == 0 {
		return nil, errors.New("missing price marker")
	}
	price, err := ParsePrice(priceSel.Text())
	if err != nil {
		return nil, err
	}

	availSel := doc.Find("p.instock.availability").First()
	if availSel.Length() == 0 {
		availSel = doc.Find("p.availability").First()
	}
	if availSel.Length() == 0 {
		return nil, errors.New("missing availability marker")
	}
	availability := strings.TrimSpace(availSel.Text())

	ratingSel := doc.Find("p.star-rating").First()
	if ratingSel.Length() == 0 {
		return nil, errors.New("missing star-rating marker")
	}
	ratingClass, _ := ratingSel.Attr("class")
	rating := RatingFromClass(ratingClass)

	descSel := doc.Find(`meta[name="description"]`).First()
	if descSel.Length() == 0 {
		return nil, errors.New("missing description meta")
	}
	description, _ := descSel.Attr("content")
	description = strings.TrimSpace(description)

	attributes, err := extractAttributeTable(doc)
	if err != nil {
		return nil, err
	}

	return &models.Book{
		Title:        title,
		Price:        price,
		Rating:       rating,
		Availability: availability,
		Description:  description,
		URL:          sourceURL,
		Attributes:   attributes,
	}, nil
}

// extractAttributeTable folds the row-oriented product information table
// into an open key/value map. Zero rows is a legitimate state and yields an
// empty, non-nil map.
func extractAttributeTable(doc *goquery.Document) (map[string]string, error) {
	attributes := make(map[string]string)

	var rowErr error
	doc.Find("table.table-striped tr").Each(func(i int, row *goquery.Selection) {
		header := row.Find("th").First()
		value := row.Find("td").First()
		if header.Length() == 0 || value.Length() == 0 {
			if rowErr == nil {
				rowErr = fmt.Errorf("attribute table row %d missing header or value cell", i)
			}
			return
		}
		key := NormalizeAttributeKey(header.Text())
		if key == "" {
			return
		}
		attributes[key] = strings.TrimSpace(value.Text())
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return attributes, nil
}
