// Package extract parses listing result pages and partner API records and
// normalizes them into listing.Listing values.
package extract

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hyperifyio/carfinder/internal/sources"
)

// Parse builds a queryable document from an HTML page. The tokenizer is
// lenient, so only a read failure is an error.
func Parse(body []byte) (*goquery.Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// Items selects up to limit listing containers from doc using d's selectors.
// A non-positive limit falls back to the descriptor's result cap.
func Items(doc *goquery.Document, d sources.Descriptor, limit int) []RawItem {
	if limit <= 0 {
		limit = d.Cap()
	}
	var out []RawItem
	doc.Find(d.Selectors.Container).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		out = append(out, RawItem{
			Source:    d.Name,
			BaseURL:   d.BaseURL,
			Element:   sel,
			Selectors: d.Selectors,
		})
		return len(out) < limit
	})
	return out
}

// FromHTML parses body and returns its listing containers.
func FromHTML(body []byte, d sources.Descriptor) ([]RawItem, error) {
	doc, err := Parse(body)
	if err != nil {
		return nil, err
	}
	return Items(doc, d, 0), nil
}
