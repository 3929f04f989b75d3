package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/carfinder/internal/extract"
	"github.com/hyperifyio/carfinder/internal/fetch"
	"github.com/hyperifyio/carfinder/internal/listing"
	"github.com/hyperifyio/carfinder/internal/render"
	"github.com/hyperifyio/carfinder/internal/robots"
	"github.com/hyperifyio/carfinder/internal/sources"
)

// RobotsChecker reports whether a page may be fetched.
type RobotsChecker interface {
	Check(ctx context.Context, pageURL string) (robots.Decision, error)
}

// CrawlDelayer applies a robots.txt crawl-delay hint to a host.
type CrawlDelayer interface {
	SlowDown(host string, d time.Duration)
}

// ScrapeAdapter loads a source's results page, statically or in a headless
// browser, and selects its listing containers.
type ScrapeAdapter struct {
	Source   sources.Descriptor
	Strategy sources.Strategy
	Getter   fetch.Getter
	Renderer render.Renderer
	// Robots, when set, is consulted before any request to the page.
	Robots  RobotsChecker
	Delayer CrawlDelayer
	Timeout time.Duration
}

func (a *ScrapeAdapter) Fetch(ctx context.Context, c listing.SearchCriteria) Result {
	pageURL, err := a.Source.SearchURL(c)
	if err != nil {
		return unavailable(a.Source, err)
	}
	ctx, cancel := withTimeout(ctx, a.Timeout)
	defer cancel()

	if err := a.checkRobots(ctx, pageURL); err != nil {
		return unavailable(a.Source, err)
	}

	var body []byte
	switch a.Strategy {
	case sources.StrategyBrowserRender:
		if a.Renderer == nil {
			return unavailable(a.Source, fmt.Errorf("browser rendering: %w", ErrNotConfigured))
		}
		html, err := a.Renderer.Render(ctx, pageURL, a.Source.Settle())
		if err != nil {
			return unavailable(a.Source, err)
		}
		body = []byte(html)
	case sources.StrategyStaticHTML:
		if a.Getter == nil {
			return unavailable(a.Source, fmt.Errorf("http fetch: %w", ErrNotConfigured))
		}
		b, _, err := a.Getter.Get(ctx, pageURL)
		if err != nil {
			return unavailable(a.Source, err)
		}
		body = b
	default:
		return unavailable(a.Source, fmt.Errorf("strategy %q cannot be scraped", a.Strategy))
	}

	items, err := extract.FromHTML(body, a.Source)
	if err != nil {
		return unavailable(a.Source, err)
	}
	return done(items)
}

func (a *ScrapeAdapter) checkRobots(ctx context.Context, pageURL string) error {
	if a.Robots == nil {
		return nil
	}
	d, err := a.Robots.Check(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Debug().Err(err).Str("source", a.Source.Name).Msg("robots.txt unavailable; proceeding")
		return nil
	}
	if !d.Allowed {
		return fmt.Errorf("%s: %w", pageURL, ErrDisallowed)
	}
	if d.CrawlDelay != nil && a.Delayer != nil {
		if u, err := url.Parse(pageURL); err == nil {
			a.Delayer.SlowDown(u.Hostname(), *d.CrawlDelay)
		}
	}
	return nil
}

// IsDisallowed reports whether a fetch failed on robots.txt.
func IsDisallowed(r Result) bool {
	return r.Err != nil && errors.Is(r.Err, ErrDisallowed)
}
