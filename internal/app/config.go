package app

import "time"

// Config holds runtime configuration for the server and the debug CLI.
type Config struct {
	ListenAddr string

	// Sources
	CatalogPath    string
	FastCount      int
	FullCount      int
	SourceTimeout  time.Duration
	PolitenessMin  time.Duration
	PolitenessMax  time.Duration
	DedupThreshold int

	// Fetching
	UserAgents    []string
	FetchAttempts int
	HostInterval  time.Duration
	DisableRobots bool

	// Rendering
	DisableRender bool
	ChromePath    string
	Headful       bool

	// Partners
	EbayAppID           string
	EbayCertID          string
	NextdoorAPIKey      string
	EdmundsClientID     string
	EdmundsClientSecret string

	// ListingsFile serves listings from a local JSON file as an extra
	// source. With Offline set it is the only source.
	ListingsFile string
	Offline      bool

	CORSOrigins []string
	Verbose     bool
}

// Defaults used by flags and by the config file overlay to detect values
// that were not set explicitly.
const (
	listenAddrDefault    = ":8000"
	fastCountDefault     = 10
	fullCountDefault     = 35
	sourceTimeoutDefault = 15 * time.Second
	hostIntervalDefault  = time.Second
	fetchAttemptsDefault = 1
)

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		ListenAddr:    listenAddrDefault,
		FastCount:     fastCountDefault,
		FullCount:     fullCountDefault,
		SourceTimeout: sourceTimeoutDefault,
		HostInterval:  hostIntervalDefault,
		FetchAttempts: fetchAttemptsDefault,
		CORSOrigins:   []string{"*"},
	}
}

// WithDefaults fills the fields cfg leaves at their zero value.
func WithDefaults(cfg Config) Config {
	d := DefaultConfig()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = d.ListenAddr
	}
	if cfg.FastCount == 0 {
		cfg.FastCount = d.FastCount
	}
	if cfg.FullCount == 0 {
		cfg.FullCount = d.FullCount
	}
	if cfg.SourceTimeout == 0 {
		cfg.SourceTimeout = d.SourceTimeout
	}
	if cfg.HostInterval == 0 {
		cfg.HostInterval = d.HostInterval
	}
	if cfg.FetchAttempts == 0 {
		cfg.FetchAttempts = d.FetchAttempts
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = d.CORSOrigins
	}
	return cfg
}
