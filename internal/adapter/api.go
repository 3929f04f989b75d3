package adapter

import (
	"context"
	"time"

	"github.com/hyperifyio/carfinder/internal/extract"
	"github.com/hyperifyio/carfinder/internal/listing"
	"github.com/hyperifyio/carfinder/internal/partner"
	"github.com/hyperifyio/carfinder/internal/sources"
)

// APIAdapter queries a source through its partner integration.
type APIAdapter struct {
	Source      sources.Descriptor
	Integration partner.Integration
	Timeout     time.Duration
}

func (a *APIAdapter) Fetch(ctx context.Context, c listing.SearchCriteria) Result {
	if a.Integration == nil || !a.Integration.IsConfigured() {
		return unavailable(a.Source, ErrNotConfigured)
	}
	ctx, cancel := withTimeout(ctx, a.Timeout)
	defer cancel()

	recs, err := a.Integration.Search(ctx, c)
	if err != nil {
		return unavailable(a.Source, err)
	}
	limit := a.Source.Cap()
	items := make([]extract.RawItem, 0, min(len(recs), limit))
	for i := range recs {
		if len(items) >= limit {
			break
		}
		rec := recs[i]
		items = append(items, extract.RawItem{
			Source:  a.Source.Name,
			BaseURL: a.Source.BaseURL,
			Record:  &rec,
		})
	}
	return done(items)
}
