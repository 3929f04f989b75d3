package extract

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/carfinder/internal/listing"
	"github.com/hyperifyio/carfinder/internal/sources"
)

// Record is a listing as returned by a partner API, with fields already
// mapped by the integration. Timestamp is kept verbatim when it parses.
type Record struct {
	NativeID    string `json:"id"`
	Title       string `json:"title"`
	Price       int64  `json:"price"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Description string `json:"description,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// RawItem is one unprocessed listing: either an HTML container selected from
// a results page or a partner API record. Exactly one of Element and Record
// is set.
type RawItem struct {
	Source    string
	BaseURL   string
	Element   *goquery.Selection
	Selectors sources.Selectors
	Record    *Record
}

// Extractor turns raw items into listings. The zero value stamps items
// without a native timestamp with the current time.
type Extractor struct {
	Now func() time.Time
}

func (e Extractor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Normalize maps one raw item to a Listing. ok is false when the item lacks a
// title or a price and should be dropped.
func (e Extractor) Normalize(item RawItem) (listing.Listing, bool) {
	switch {
	case item.Record != nil:
		return e.fromRecord(item.Source, item.BaseURL, *item.Record)
	case item.Element != nil:
		return e.fromElement(item)
	}
	return listing.Listing{}, false
}

func (e Extractor) fromRecord(source, base string, r Record) (listing.Listing, bool) {
	title := strings.TrimSpace(collapseSpaces(r.Title))
	if title == "" {
		return listing.Listing{}, false
	}
	price := r.Price
	if price < 0 {
		price = 0
	}
	l := listing.Listing{
		Source:      source,
		Title:       title,
		Price:       price,
		Location:    NormalizeLocation(r.Location),
		URL:         NormalizeURL(r.URL, base),
		ImageURL:    NormalizeURL(r.ImageURL, base),
		Description: strings.TrimSpace(collapseSpaces(r.Description)),
		Timestamp:   e.timestamp(r.Timestamp),
	}
	l.ID = identify(l, r.NativeID)
	return l, true
}

func (e Extractor) fromElement(item RawItem) (listing.Listing, bool) {
	s := item.Selectors
	el := item.Element
	title := text(el, s.Title)
	if title == "" {
		return listing.Listing{}, false
	}
	priceText := text(el, s.Price)
	if priceText == "" {
		return listing.Listing{}, false
	}
	l := listing.Listing{
		Source:      item.Source,
		Title:       title,
		Price:       ParsePrice(priceText),
		Location:    NormalizeLocation(text(el, s.Location)),
		URL:         NormalizeURL(attr(el, s.URL, "href"), item.BaseURL),
		ImageURL:    NormalizeURL(image(el, s.Image), item.BaseURL),
		Description: text(el, s.Description),
		Timestamp:   e.now().UTC().Format(time.RFC3339),
	}
	l.ID = identify(l, "")
	return l, true
}

func (e Extractor) timestamp(native string) string {
	native = strings.TrimSpace(native)
	if native != "" {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z", "2006-01-02"} {
			if t, err := time.Parse(layout, native); err == nil {
				return t.UTC().Format(time.RFC3339)
			}
		}
	}
	return e.now().UTC().Format(time.RFC3339)
}

func identify(l listing.Listing, nativeID string) string {
	canonical := ""
	if l.URL != "" {
		canonical = CanonicalURL(l.URL)
	}
	fallback := l.Title + "|" + strconv.FormatInt(l.Price, 10) + "|" + l.Location
	return ListingID(l.Source, nativeID, canonical, fallback)
}

// find evaluates selector within el. An empty selector matches nothing; a
// selector equal to the container's own match is allowed to select el itself.
func find(el *goquery.Selection, selector string) *goquery.Selection {
	if selector == "" {
		return el.Slice(0, 0)
	}
	sel := el.Find(selector).First()
	if sel.Length() == 0 && el.Is(selector) {
		return el
	}
	return sel
}

func text(el *goquery.Selection, selector string) string {
	sel := find(el, selector)
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(collapseSpaces(sel.Text()))
}

func attr(el *goquery.Selection, selector, name string) string {
	sel := find(el, selector)
	if sel.Length() == 0 {
		return ""
	}
	v, _ := sel.Attr(name)
	return strings.TrimSpace(v)
}

func image(el *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	if src := attr(el, selector, "src"); src != "" {
		return src
	}
	return attr(el, selector, "data-src")
}
