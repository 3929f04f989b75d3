package adapter

import (
	"time"

	"github.com/hyperifyio/carfinder/internal/fetch"
	"github.com/hyperifyio/carfinder/internal/partner"
	"github.com/hyperifyio/carfinder/internal/render"
	"github.com/hyperifyio/carfinder/internal/sources"
)

// Factory builds the adapter for each source from shared capabilities.
type Factory struct {
	Partners *partner.Registry
	Getter   fetch.Getter
	Renderer render.Renderer
	Robots   RobotsChecker
	Delayer  CrawlDelayer
	Timeout  time.Duration
}

// For applies the selection policy: an api source whose integration is
// registered and configured gets an APIAdapter; everything else is scraped
// with the source's scrape strategy.
func (f *Factory) For(d sources.Descriptor) Adapter {
	if d.Strategy == sources.StrategyAPI {
		if in, ok := f.Partners.Lookup(d.Integration); ok && in.IsConfigured() {
			return &APIAdapter{Source: d, Integration: in, Timeout: f.Timeout}
		}
	}
	return &ScrapeAdapter{
		Source:   d,
		Strategy: d.ScrapeStrategy(),
		Getter:   f.Getter,
		Renderer: f.Renderer,
		Robots:   f.Robots,
		Delayer:  f.Delayer,
		Timeout:  f.Timeout,
	}
}
