// Package aggregate merges listings from many sources into one result set
// with near-duplicates removed.
package aggregate

import (
	"math"
	"strconv"
	"strings"

	"github.com/hyperifyio/carfinder/internal/listing"
)

// DefaultThreshold is the similarity above which two listings are the same
// vehicle. A score equal to the threshold is still distinct.
const DefaultThreshold = 85

// Deduplicator accumulates the listings accepted during one search. It is
// owned by a single run and is not safe for concurrent use.
type Deduplicator struct {
	threshold  int
	ids        map[string]struct{}
	signatures []string
	accepted   []listing.Listing
}

// New returns an empty Deduplicator. A non-positive threshold selects
// DefaultThreshold.
func New(threshold int) *Deduplicator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Deduplicator{threshold: threshold, ids: map[string]struct{}{}}
}

// Accept records l and returns true unless it repeats an accepted id or its
// signature is more similar than the threshold to any accepted signature.
func (d *Deduplicator) Accept(l listing.Listing) bool {
	if l.ID != "" {
		if _, ok := d.ids[l.ID]; ok {
			return false
		}
	}
	sig := Signature(l)
	for _, s := range d.signatures {
		if Similarity(sig, s) > d.threshold {
			return false
		}
	}
	if l.ID != "" {
		d.ids[l.ID] = struct{}{}
	}
	d.signatures = append(d.signatures, sig)
	d.accepted = append(d.accepted, l)
	return true
}

// Accepted returns the survivors in acceptance order.
func (d *Deduplicator) Accepted() []listing.Listing {
	out := make([]listing.Listing, len(d.accepted))
	copy(out, d.accepted)
	return out
}

// Len is the number of accepted listings.
func (d *Deduplicator) Len() int { return len(d.accepted) }

// Signature is the comparison key of a listing: title, price and location
// joined by '|'. Case is significant.
func Signature(l listing.Listing) string {
	return strings.TrimSpace(l.Title) + "|" + strconv.FormatInt(l.Price, 10) + "|" + strings.TrimSpace(l.Location)
}

// Similarity scores two strings from 0 to 100 as the share of runes left in
// place when b is turned into a by insertions and deletions only:
// (len(a)+len(b)-indel) / (len(a)+len(b)), rounded half to even. An appended
// trim level therefore costs its length once instead of a substitution per
// rune.
func Similarity(a, b string) int {
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	indel := total - 2*lcs(ra, rb)
	return int(math.RoundToEven(100 * float64(total-indel) / float64(total)))
}

// lcs is the length of the longest common subsequence of a and b.
func lcs(a, b []rune) int {
	if len(b) > len(a) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
