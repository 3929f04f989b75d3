package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/carfinder/internal/app"
	"github.com/hyperifyio/carfinder/internal/server"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		cfg         app.Config
		configPath  string
		envFiles    string
		userAgents  string
		corsOrigins string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", os.Getenv("CARFINDER_CONFIG"), "Path to YAML or JSON config file")
	flag.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files to load; later files win")
	flag.StringVar(&cfg.ListenAddr, "listen", "", "Listen address (default :8000)")
	flag.StringVar(&cfg.CatalogPath, "sources", "", "Path to a YAML source catalog (default: built-in)")
	flag.IntVar(&cfg.FastCount, "sources.fast", 0, "Sources visited by a fast search (default 10)")
	flag.IntVar(&cfg.FullCount, "sources.full", 0, "Sources visited by a full search (default 35)")
	flag.DurationVar(&cfg.SourceTimeout, "sources.timeout", 0, "Per-source timeout (default 15s)")
	flag.DurationVar(&cfg.PolitenessMin, "politeness.min", 0, "Minimum pause between sources when a source sets none")
	flag.DurationVar(&cfg.PolitenessMax, "politeness.max", 0, "Maximum pause between sources when a source sets none")
	flag.IntVar(&cfg.DedupThreshold, "dedup.threshold", 0, "Similarity above which listings are duplicates (default 85)")
	flag.StringVar(&userAgents, "fetch.userAgents", "", "Comma-separated user agents to rotate")
	flag.IntVar(&cfg.FetchAttempts, "fetch.attempts", 0, "Attempts per page fetch including the first (default 1)")
	flag.DurationVar(&cfg.HostInterval, "fetch.hostInterval", 0, "Minimum spacing of requests to one host (default 1s)")
	flag.BoolVar(&cfg.DisableRobots, "robots.disable", false, "Do not consult robots.txt")
	flag.BoolVar(&cfg.DisableRender, "render.disable", false, "Disable headless Chrome; browser-render sources become unavailable")
	flag.StringVar(&cfg.ChromePath, "render.chrome", "", "Chrome executable path")
	flag.BoolVar(&cfg.Headful, "render.headful", false, "Show the browser window")
	flag.StringVar(&cfg.ListingsFile, "listings.file", "", "JSON file served as an extra local source")
	flag.BoolVar(&cfg.Offline, "offline", false, "Search only the listings file")
	flag.StringVar(&corsOrigins, "cors.origins", "", "Comma-separated allowed origins (default *)")
	flag.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("carfinder %s (%s, %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return
	}
	cfg.UserAgents = splitList(userAgents)
	cfg.CORSOrigins = splitList(corsOrigins)

	if err := app.LoadEnvFiles(splitList(envFiles)...); err != nil {
		log.Fatal().Err(err).Msg("load env files")
	}
	resolved, err := resolveConfig(cfg, configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	if resolved.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := run(resolved); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

// resolveConfig layers flags over env over the config file over defaults.
func resolveConfig(cfg app.Config, configPath string) (app.Config, error) {
	app.ApplyEnvToConfig(&cfg)
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	return app.WithDefaults(cfg), nil
}

func newHTTPServer(ctx context.Context, cfg app.Config) (*http.Server, error) {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init app: %w", err)
	}
	s := &server.Server{
		Runner:      a.Orchestrator(),
		Metrics:     a.Metrics(),
		CORSOrigins: cfg.CORSOrigins,
	}
	// No write timeout: search streams stay open while sources are visited.
	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}, nil
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	srv, err := newHTTPServer(ctx, cfg)
	if err != nil {
		return err
	}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Str("version", app.BuildVersion).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
