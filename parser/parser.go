// Package parser extracts structured records from catalog and detail pages.
// Extractors are pure functions of the parsed document; they never fetch.
package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// NoRating is the canonical sentinel for a star-rating marker whose class
// token list is malformed. A missing marker element is a record failure
// instead, so the sentinel never conflates "absent" with "unparseable".
const NoRating = "No rating"

// ParsePrice strips the currency symbol and parses the remainder as a
// decimal amount. A non-numeric remainder is an extraction failure.
func ParsePrice(text string) (float64, error) {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "Â£", "")
	text = strings.ReplaceAll(text, "£", "")
	text = strings.TrimSpace(text)

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", text, err)
	}
	return value, nil
}

// RatingFromClass selects the rating token positionally from the star-rating
// marker's class list ("star-rating Three" yields "Three"). A token list that
// is too short yields the NoRating sentinel.
func RatingFromClass(class string) string {
	parts := strings.Fields(class)
	if len(parts) < 2 {
		return NoRating
	}
	return parts[1]
}

// RatingToNumeric converts the textual rating tier to a numeric scale.
// The sentinel and unknown tokens map to zero.
func RatingToNumeric(rating string) int {
	switch strings.TrimSpace(rating) {
	case "One":
		return 1
	case "Two":
		return 2
	case "Three":
		return 3
	case "Four":
		return 4
	case "Five":
		return 5
	default:
		return 0
	}
}

// NormalizeAttributeKey turns a product-information table header into a
// stable column key: lower-cased, spaces joined with underscores.
func NormalizeAttributeKey(header string) string {
	header = strings.ToLower(strings.TrimSpace(header))
	return strings.ReplaceAll(header, " ", "_")
}
