package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&cfg.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.CatalogPath, "SOURCES_FILE")
	setString(&cfg.ChromePath, "CHROME_PATH")
	setString(&cfg.EbayAppID, "EBAY_APP_ID")
	setString(&cfg.EbayCertID, "EBAY_CERT_ID")
	setString(&cfg.NextdoorAPIKey, "NEXTDOOR_API_KEY")
	setString(&cfg.EdmundsClientID, "EDMUNDS_CLIENT_ID", "EDMUNDS_API_KEY")
	setString(&cfg.EdmundsClientSecret, "EDMUNDS_CLIENT_SECRET", "EDMUNDS_SECRET")
	setString(&cfg.ListingsFile, "LISTINGS_FILE")

	// SOURCE_COUNTS can be "<fast>" or "<fast>,<full>"
	if cfg.FastCount == 0 || cfg.FullCount == 0 {
		fast, full := parseCounts(os.Getenv("SOURCE_COUNTS"))
		if fast > 0 && cfg.FastCount == 0 {
			cfg.FastCount = fast
		}
		if full > 0 && cfg.FullCount == 0 {
			cfg.FullCount = full
		}
	}
	if cfg.SourceTimeout == 0 {
		cfg.SourceTimeout = envDuration("SOURCE_TIMEOUT")
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = splitList(os.Getenv("CORS_ORIGINS"))
	}

	setBool := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			if s == "1" || s == "true" || s == "yes" || s == "on" {
				*dst = true
			}
		}
	}
	setBool(&cfg.DisableRender, "DISABLE_RENDER")
	setBool(&cfg.DisableRobots, "DISABLE_ROBOTS")
	setBool(&cfg.Offline, "OFFLINE")
	setBool(&cfg.Verbose, "VERBOSE")
}

// ApplyEnvOverrides overrides cfg fields with environment variables that are
// set. It runs after the config file overlay so env beats file while flags
// stay highest.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	override := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	override(&cfg.ListenAddr, "LISTEN_ADDR")
	override(&cfg.CatalogPath, "SOURCES_FILE")
	override(&cfg.ChromePath, "CHROME_PATH")
	override(&cfg.EbayAppID, "EBAY_APP_ID")
	override(&cfg.EbayCertID, "EBAY_CERT_ID")
	override(&cfg.NextdoorAPIKey, "NEXTDOOR_API_KEY")
	override(&cfg.EdmundsClientID, "EDMUNDS_CLIENT_ID", "EDMUNDS_API_KEY")
	override(&cfg.EdmundsClientSecret, "EDMUNDS_CLIENT_SECRET", "EDMUNDS_SECRET")
	override(&cfg.ListingsFile, "LISTINGS_FILE")

	fast, full := parseCounts(os.Getenv("SOURCE_COUNTS"))
	if fast > 0 {
		cfg.FastCount = fast
	}
	if full > 0 {
		cfg.FullCount = full
	}
	if d := envDuration("SOURCE_TIMEOUT"); d > 0 {
		cfg.SourceTimeout = d
	}
	if d := envDuration("HOST_INTERVAL"); d > 0 {
		cfg.HostInterval = d
	}
	if list := splitList(os.Getenv("CORS_ORIGINS")); len(list) > 0 {
		cfg.CORSOrigins = list
	}
	if list := splitList(os.Getenv("USER_AGENTS")); len(list) > 0 {
		cfg.UserAgents = list
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			switch s {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}
	setBool(&cfg.DisableRender, "DISABLE_RENDER")
	setBool(&cfg.DisableRobots, "DISABLE_ROBOTS")
	setBool(&cfg.Offline, "OFFLINE")
	setBool(&cfg.Verbose, "VERBOSE")
}

func parseCounts(s string) (fast, full int) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0
	}
	parts := strings.Split(s, ",")
	if n, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil && n > 0 {
		fast = n
	}
	if len(parts) >= 2 {
		if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && n > 0 {
			full = n
		}
	}
	return fast, full
}

func envDuration(key string) time.Duration {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return 0
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
