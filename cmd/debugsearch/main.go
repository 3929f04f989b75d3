package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/carfinder/internal/app"
	"github.com/hyperifyio/carfinder/internal/listing"
	"github.com/hyperifyio/carfinder/internal/search"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath string
		c          listing.SearchCriteria
		full       bool
		verbose    bool
		timeout    time.Duration
	)
	flag.StringVar(&configPath, "config", os.Getenv("CARFINDER_CONFIG"), "Path to YAML or JSON config file")
	flag.StringVar(&c.Location, "location", "Los Angeles", "Search location")
	flag.Int64Var(&c.MaxPrice, "max-price", 15000, "Maximum price in dollars")
	flag.StringVar(&c.Make, "make", "", "Vehicle make")
	flag.StringVar(&c.Model, "model", "", "Vehicle model")
	flag.StringVar(&c.ZipCode, "zip", "", "ZIP code")
	flag.BoolVar(&c.PrivateOnly, "private", false, "Drop dealer listings")
	flag.BoolVar(&full, "full", false, "Visit the full source list")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "Overall deadline")
	flag.Parse()

	c.Keyword = "civic"
	if flag.NArg() > 0 {
		c.Keyword = strings.Join(flag.Args(), " ")
	}
	if full {
		c.Breadth = listing.BreadthFull
	}
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	_ = app.LoadEnvFiles(".env")
	cfg := app.DefaultConfig()
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("load config file")
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init app")
	}
	n := printEvents(os.Stdout, a.Orchestrator().Run(ctx, c))
	fmt.Printf("\n%d listings\n", n)
}

// printEvents writes one line per event and returns the number of results.
func printEvents(w io.Writer, events <-chan search.Event) int {
	n := 0
	for ev := range events {
		switch ev.Type {
		case search.EventProgress:
			fmt.Fprintf(w, "[%d/%d] %s\n", ev.Current, ev.Total, ev.Site)
		case search.EventResult:
			n++
			v := ev.Vehicle
			fmt.Fprintf(w, "  %s  %s | %s | %s\n", listing.FormatPrice(v.Price), v.Title, v.Location, v.URL)
		case search.EventError:
			fmt.Fprintf(w, "error: %s\n", ev.Message)
		case search.EventComplete:
			fmt.Fprintln(w, "done")
		}
	}
	return n
}
