// Package adapter fetches raw listings from one source, either through its
// partner API or by scraping its results page, and reports how it went.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperifyio/carfinder/internal/extract"
	"github.com/hyperifyio/carfinder/internal/listing"
	"github.com/hyperifyio/carfinder/internal/robots"
	"github.com/hyperifyio/carfinder/internal/sources"
)

// DefaultTimeout bounds one source fetch.
const DefaultTimeout = 15 * time.Second

var (
	// ErrUnavailable wraps every failure that makes a source contribute
	// nothing: transport, status, parse, auth and timeouts.
	ErrUnavailable = errors.New("source unavailable")
	// ErrNotConfigured marks a capability that is missing locally.
	ErrNotConfigured = errors.New("not configured")
	// ErrDisallowed marks a path excluded by robots.txt.
	ErrDisallowed = robots.ErrDisallowed
)

// Outcome classifies a fetch.
type Outcome int

const (
	Success Outcome = iota
	EmptyNoMatch
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case EmptyNoMatch:
		return "empty"
	case Unavailable:
		return "unavailable"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is what one fetch produced. Err is set only when Outcome is
// Unavailable and always wraps ErrUnavailable.
type Result struct {
	Items   []extract.RawItem
	Outcome Outcome
	Err     error
}

// Adapter fetches raw items for one source. Implementations never panic
// outward for expected failures and never return items with Unavailable.
type Adapter interface {
	Fetch(ctx context.Context, c listing.SearchCriteria) Result
}

func unavailable(d sources.Descriptor, err error) Result {
	return Result{Outcome: Unavailable, Err: fmt.Errorf("%s: %w: %w", d.Name, ErrUnavailable, err)}
}

func done(items []extract.RawItem) Result {
	if len(items) == 0 {
		return Result{Outcome: EmptyNoMatch}
	}
	return Result{Items: items, Outcome: Success}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
