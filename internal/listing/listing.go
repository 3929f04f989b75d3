// Package listing holds the request and result types shared by every stage
// of the aggregation pipeline.
package listing

import (
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Breadth selects how many configured sources a search visits.
type Breadth string

const (
	BreadthFast Breadth = "fast"
	BreadthFull Breadth = "full"
)

// DefaultRadius is applied when a request does not carry a radius.
const DefaultRadius = 50

// ErrInvalidCriteria is wrapped by every validation failure.
var ErrInvalidCriteria = errors.New("invalid search criteria")

// SearchCriteria is one search request. It is never mutated by the pipeline.
type SearchCriteria struct {
	Keyword     string   `json:"keyword"`
	Location    string   `json:"location"`
	MaxPrice    int64    `json:"maxPrice"`
	Make        string   `json:"make,omitempty"`
	Model       string   `json:"model,omitempty"`
	MinYear     *int     `json:"minYear,omitempty"`
	MaxYear     *int     `json:"maxYear,omitempty"`
	MaxMileage  *int     `json:"maxMileage,omitempty"`
	ZipCode     string   `json:"zipCode,omitempty"`
	Radius      *int     `json:"radius,omitempty"`
	BodyStyles  []string `json:"bodyStyles,omitempty"`
	Condition   string   `json:"condition,omitempty"`
	FuelTypes   []string `json:"fuelTypes,omitempty"`
	PrivateOnly bool     `json:"privateOnly,omitempty"`
	Breadth     Breadth  `json:"searchMode,omitempty"`
}

// Validate reports the first problem with c, wrapped in ErrInvalidCriteria.
// An empty keyword is valid and searches every source without a query.
func (c SearchCriteria) Validate() error {
	if c.MaxPrice < 0 {
		return fmt.Errorf("%w: maxPrice must not be negative", ErrInvalidCriteria)
	}
	if c.Radius != nil && *c.Radius <= 0 {
		return fmt.Errorf("%w: radius must be positive", ErrInvalidCriteria)
	}
	if c.MinYear != nil && c.MaxYear != nil && *c.MinYear > *c.MaxYear {
		return fmt.Errorf("%w: minYear %d is after maxYear %d", ErrInvalidCriteria, *c.MinYear, *c.MaxYear)
	}
	if c.ZipCode != "" && !ValidZip(c.ZipCode) {
		return fmt.Errorf("%w: zipCode %q is not a US ZIP code", ErrInvalidCriteria, c.ZipCode)
	}
	switch c.Breadth {
	case "", BreadthFast, BreadthFull:
	default:
		return fmt.Errorf("%w: unknown searchMode %q", ErrInvalidCriteria, c.Breadth)
	}
	return nil
}

// EffectiveRadius returns the requested radius or DefaultRadius.
func (c SearchCriteria) EffectiveRadius() int {
	if c.Radius == nil {
		return DefaultRadius
	}
	return *c.Radius
}

// EffectiveBreadth treats an empty breadth as fast.
func (c SearchCriteria) EffectiveBreadth() Breadth {
	if c.Breadth == "" {
		return BreadthFast
	}
	return c.Breadth
}

// Listing is one normalized vehicle-for-sale record.
type Listing struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Title       string `json:"title"`
	Price       int64  `json:"price"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Description string `json:"description,omitempty"`
	Timestamp   string `json:"timestamp"`
}

var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// ValidZip accepts 5-digit and ZIP+4 codes.
func ValidZip(zip string) bool {
	return zipPattern.MatchString(zip)
}

var pricePrinter = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders a price as "$12,000".
func FormatPrice(price int64) string {
	return pricePrinter.Sprintf("$%d", price)
}
