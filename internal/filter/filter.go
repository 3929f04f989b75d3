// Package filter decides whether a normalized listing satisfies the
// optional constraints of a search.
package filter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperifyio/carfinder/internal/listing"
)

// MinPrice is the floor below which a price is treated as a placeholder
// ("call for price", "$1") rather than a real asking price.
const MinPrice = 100

var dealerPhrases = []string{"dealer", "dealership", "auto sales", "motors inc"}

var fuelSynonyms = map[string][]string{
	"electric": {"electric", "ev", "tesla"},
	"hybrid":   {"hybrid", "plug-in"},
	"diesel":   {"diesel", "tdi"},
}

var yearToken = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Passes reports whether l satisfies c. Checks run in a fixed order and stop
// at the first failure. Passes has no side effects.
func Passes(l listing.Listing, c listing.SearchCriteria) bool {
	if l.Price > c.MaxPrice {
		return false
	}
	if l.Price < MinPrice {
		return false
	}
	title := strings.ToLower(l.Title)
	if c.PrivateOnly && isDealer(title, strings.ToLower(l.Location)) {
		return false
	}
	if m := strings.ToLower(strings.TrimSpace(c.Make)); m != "" && !strings.Contains(title, m) {
		return false
	}
	if m := strings.ToLower(strings.TrimSpace(c.Model)); m != "" && !strings.Contains(title, m) {
		return false
	}
	if !yearInRange(title, c.MinYear, c.MaxYear) {
		return false
	}
	if len(c.BodyStyles) > 0 && !containsAny(title, lowered(c.BodyStyles)) {
		return false
	}
	if len(c.FuelTypes) > 0 && !onlyGas(c.FuelTypes) && !matchesFuel(title, c.FuelTypes) {
		return false
	}
	return true
}

// Apply returns the listings in ls that pass c, preserving order.
func Apply(ls []listing.Listing, c listing.SearchCriteria) []listing.Listing {
	out := make([]listing.Listing, 0, len(ls))
	for _, l := range ls {
		if Passes(l, c) {
			out = append(out, l)
		}
	}
	return out
}

// Year returns the first plausible model year in title.
func Year(title string) (int, bool) {
	m := yearToken.FindString(title)
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}

func yearInRange(title string, min, max *int) bool {
	if min == nil && max == nil {
		return true
	}
	y, ok := Year(title)
	if !ok {
		return true
	}
	if min != nil && y < *min {
		return false
	}
	if max != nil && y > *max {
		return false
	}
	return true
}

func isDealer(title, location string) bool {
	return containsAny(title, dealerPhrases) || containsAny(location, dealerPhrases)
}

// A fuel-type set of exactly {Gas} means "no preference" because titles
// rarely mention gasoline.
func onlyGas(types []string) bool {
	return len(types) == 1 && strings.EqualFold(strings.TrimSpace(types[0]), "gas")
}

func matchesFuel(title string, types []string) bool {
	for _, t := range types {
		key := strings.ToLower(strings.TrimSpace(t))
		syn, ok := fuelSynonyms[key]
		if !ok {
			syn = []string{key}
		}
		if containsAny(title, syn) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func lowered(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
