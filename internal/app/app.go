// Package app turns a Config into a ready search pipeline: it loads the
// source catalog and constructs the shared fetch, robots, render, pacing,
// partner and metrics components.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/carfinder/internal/adapter"
	"github.com/hyperifyio/carfinder/internal/extract"
	"github.com/hyperifyio/carfinder/internal/fetch"
	"github.com/hyperifyio/carfinder/internal/metrics"
	"github.com/hyperifyio/carfinder/internal/pacing"
	"github.com/hyperifyio/carfinder/internal/partner"
	"github.com/hyperifyio/carfinder/internal/render"
	"github.com/hyperifyio/carfinder/internal/robots"
	"github.com/hyperifyio/carfinder/internal/search"
	"github.com/hyperifyio/carfinder/internal/sources"
)

// robotsAgent is the product token matched against robots.txt groups.
const robotsAgent = "carfinder"

// LocalSourceName names the source backed by Config.ListingsFile.
const LocalSourceName = "Local listings"

type App struct {
	cfg          Config
	catalog      sources.Catalog
	partners     *partner.Registry
	metrics      *metrics.Metrics
	orchestrator *search.Orchestrator
}

// New validates cfg and builds the pipeline. No network access happens here.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	hc := newSourceHTTPClient(cfg.SourceTimeout)
	limiter := pacing.NewHostLimiter(cfg.HostInterval, 1)
	fetcher := &fetch.Client{
		HTTPClient:        hc,
		UserAgents:        cfg.UserAgents,
		MaxAttempts:       cfg.FetchAttempts,
		PerRequestTimeout: cfg.SourceTimeout,
		Limiter:           limiter,
	}

	partners := partner.NewRegistry(
		&partner.Ebay{AppID: cfg.EbayAppID, CertID: cfg.EbayCertID, HTTPClient: hc},
		&partner.Nextdoor{APIKey: cfg.NextdoorAPIKey, HTTPClient: hc},
		&partner.Edmunds{ClientID: cfg.EdmundsClientID, ClientSecret: cfg.EdmundsClientSecret, HTTPClient: hc},
		&partner.File{Path: cfg.ListingsFile},
	)

	factory := &adapter.Factory{
		Partners: partners,
		Getter:   fetcher,
		Delayer:  limiter,
		Timeout:  cfg.SourceTimeout,
	}
	if !cfg.DisableRobots {
		factory.Robots = &robots.Manager{HTTPClient: hc, UserAgent: robotsAgent, EntryExpiry: 30 * time.Minute}
	}
	if !cfg.DisableRender {
		ua := fetch.DefaultUserAgents[0]
		if len(cfg.UserAgents) > 0 {
			ua = cfg.UserAgents[0]
		}
		factory.Renderer = &render.Chrome{ExecPath: cfg.ChromePath, Headful: cfg.Headful, UserAgent: ua}
	}

	m := metrics.New(prometheus.NewRegistry())
	a := &App{
		cfg:      cfg,
		catalog:  catalog,
		partners: partners,
		metrics:  m,
		orchestrator: &search.Orchestrator{
			Catalog:        catalog,
			FastCount:      cfg.FastCount,
			FullCount:      cfg.FullCount,
			Adapters:       factory,
			Pacer:          pacing.NewPacer(time.Now().UnixNano()),
			Extractor:      extract.Extractor{},
			Recorder:       m,
			DedupThreshold: cfg.DedupThreshold,
		},
	}

	logger := log.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &log.Logger
	}
	logger.Info().
		Int("sources", len(catalog.Sources)).
		Strs("partners", partners.Configured()).
		Bool("robots", !cfg.DisableRobots).
		Bool("render", !cfg.DisableRender).
		Msg("pipeline ready")
	return a, nil
}

// Orchestrator returns the search pipeline shared by all requests.
func (a *App) Orchestrator() *search.Orchestrator { return a.orchestrator }

func (a *App) Metrics() *metrics.Metrics { return a.metrics }

func (a *App) Config() Config { return a.cfg }

func (a *App) Catalog() sources.Catalog { return a.catalog }

func loadCatalog(cfg Config) (sources.Catalog, error) {
	var (
		c   sources.Catalog
		err error
	)
	switch {
	case cfg.Offline:
	case strings.TrimSpace(cfg.CatalogPath) != "":
		c, err = sources.Load(cfg.CatalogPath)
	default:
		c, err = sources.Default()
	}
	if err != nil {
		return sources.Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	applyPoliteness(&c, cfg.PolitenessMin, cfg.PolitenessMax)
	if strings.TrimSpace(cfg.ListingsFile) != "" {
		local := sources.Descriptor{
			Name:        LocalSourceName,
			Strategy:    sources.StrategyAPI,
			Integration: "file",
			BaseURL:     "http://localhost",
			Politeness:  sources.DelayRange{Min: time.Nanosecond, Max: time.Nanosecond},
		}
		c.Sources = append([]sources.Descriptor{local}, c.Sources...)
	}
	return c, nil
}

// applyPoliteness sets the pause range of descriptors that leave it unset.
func applyPoliteness(c *sources.Catalog, min, max time.Duration) {
	if min <= 0 && max <= 0 {
		return
	}
	if max < min {
		max = min
	}
	for i := range c.Sources {
		p := &c.Sources[i].Politeness
		if p.Min == 0 && p.Max == 0 {
			p.Min, p.Max = min, max
		}
	}
}
