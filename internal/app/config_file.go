package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema. Nested sections map
// onto the dotted flag names.
type FileConfig struct {
	Listen string `yaml:"listen" json:"listen"`

	Sources struct {
		Catalog        string        `yaml:"catalog" json:"catalog"`
		Fast           int           `yaml:"fast" json:"fast"`
		Full           int           `yaml:"full" json:"full"`
		Timeout        time.Duration `yaml:"timeout" json:"timeout"`
		PolitenessMin  time.Duration `yaml:"politenessMin" json:"politenessMin"`
		PolitenessMax  time.Duration `yaml:"politenessMax" json:"politenessMax"`
		DedupThreshold int           `yaml:"dedupThreshold" json:"dedupThreshold"`
	} `yaml:"sources" json:"sources"`

	Fetch struct {
		UserAgents   []string      `yaml:"userAgents" json:"userAgents"`
		Attempts     int           `yaml:"attempts" json:"attempts"`
		HostInterval time.Duration `yaml:"hostInterval" json:"hostInterval"`
	} `yaml:"fetch" json:"fetch"`

	Robots struct {
		Disable bool `yaml:"disable" json:"disable"`
	} `yaml:"robots" json:"robots"`

	Render struct {
		Disable bool   `yaml:"disable" json:"disable"`
		Chrome  string `yaml:"chrome" json:"chrome"`
		Headful bool   `yaml:"headful" json:"headful"`
	} `yaml:"render" json:"render"`

	Partners struct {
		Ebay struct {
			AppID  string `yaml:"appID" json:"appID"`
			CertID string `yaml:"certID" json:"certID"`
		} `yaml:"ebay" json:"ebay"`
		Nextdoor struct {
			APIKey string `yaml:"apiKey" json:"apiKey"`
		} `yaml:"nextdoor" json:"nextdoor"`
		Edmunds struct {
			ClientID     string `yaml:"clientID" json:"clientID"`
			ClientSecret string `yaml:"clientSecret" json:"clientSecret"`
		} `yaml:"edmunds" json:"edmunds"`
	} `yaml:"partners" json:"partners"`

	Listings struct {
		File    string `yaml:"file" json:"file"`
		Offline bool   `yaml:"offline" json:"offline"`
	} `yaml:"listings" json:"listings"`

	CORS struct {
		Origins []string `yaml:"origins" json:"origins"`
	} `yaml:"cors" json:"cors"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from fc onto cfg for fields still at their
// zero or default value, so explicit flags keep precedence.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if (cfg.ListenAddr == "" || cfg.ListenAddr == listenAddrDefault) && fc.Listen != "" {
		cfg.ListenAddr = fc.Listen
	}

	if cfg.CatalogPath == "" && fc.Sources.Catalog != "" {
		cfg.CatalogPath = fc.Sources.Catalog
	}
	if (cfg.FastCount == 0 || cfg.FastCount == fastCountDefault) && fc.Sources.Fast > 0 {
		cfg.FastCount = fc.Sources.Fast
	}
	if (cfg.FullCount == 0 || cfg.FullCount == fullCountDefault) && fc.Sources.Full > 0 {
		cfg.FullCount = fc.Sources.Full
	}
	if (cfg.SourceTimeout == 0 || cfg.SourceTimeout == sourceTimeoutDefault) && fc.Sources.Timeout > 0 {
		cfg.SourceTimeout = fc.Sources.Timeout
	}
	if cfg.PolitenessMin == 0 && fc.Sources.PolitenessMin > 0 {
		cfg.PolitenessMin = fc.Sources.PolitenessMin
	}
	if cfg.PolitenessMax == 0 && fc.Sources.PolitenessMax > 0 {
		cfg.PolitenessMax = fc.Sources.PolitenessMax
	}
	if cfg.DedupThreshold == 0 && fc.Sources.DedupThreshold > 0 {
		cfg.DedupThreshold = fc.Sources.DedupThreshold
	}

	if len(cfg.UserAgents) == 0 && len(fc.Fetch.UserAgents) > 0 {
		cfg.UserAgents = append([]string{}, fc.Fetch.UserAgents...)
	}
	if (cfg.FetchAttempts == 0 || cfg.FetchAttempts == fetchAttemptsDefault) && fc.Fetch.Attempts > 0 {
		cfg.FetchAttempts = fc.Fetch.Attempts
	}
	if (cfg.HostInterval == 0 || cfg.HostInterval == hostIntervalDefault) && fc.Fetch.HostInterval > 0 {
		cfg.HostInterval = fc.Fetch.HostInterval
	}
	if !cfg.DisableRobots && fc.Robots.Disable {
		cfg.DisableRobots = true
	}

	if !cfg.DisableRender && fc.Render.Disable {
		cfg.DisableRender = true
	}
	if cfg.ChromePath == "" && fc.Render.Chrome != "" {
		cfg.ChromePath = fc.Render.Chrome
	}
	if !cfg.Headful && fc.Render.Headful {
		cfg.Headful = true
	}

	if cfg.EbayAppID == "" && fc.Partners.Ebay.AppID != "" {
		cfg.EbayAppID = fc.Partners.Ebay.AppID
	}
	if cfg.EbayCertID == "" && fc.Partners.Ebay.CertID != "" {
		cfg.EbayCertID = fc.Partners.Ebay.CertID
	}
	if cfg.NextdoorAPIKey == "" && fc.Partners.Nextdoor.APIKey != "" {
		cfg.NextdoorAPIKey = fc.Partners.Nextdoor.APIKey
	}
	if cfg.EdmundsClientID == "" && fc.Partners.Edmunds.ClientID != "" {
		cfg.EdmundsClientID = fc.Partners.Edmunds.ClientID
	}
	if cfg.EdmundsClientSecret == "" && fc.Partners.Edmunds.ClientSecret != "" {
		cfg.EdmundsClientSecret = fc.Partners.Edmunds.ClientSecret
	}

	if cfg.ListingsFile == "" && fc.Listings.File != "" {
		cfg.ListingsFile = fc.Listings.File
	}
	if !cfg.Offline && fc.Listings.Offline {
		cfg.Offline = true
	}
	if (len(cfg.CORSOrigins) == 0 || isWildcardOnly(cfg.CORSOrigins)) && len(fc.CORS.Origins) > 0 {
		cfg.CORSOrigins = append([]string{}, fc.CORS.Origins...)
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

func isWildcardOnly(origins []string) bool {
	return len(origins) == 1 && origins[0] == "*"
}

// ValidateConfig rejects settings the pipeline cannot run with.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return errors.New("config: listen address is required")
	}
	if cfg.FastCount < 0 || cfg.FullCount < 0 || cfg.FetchAttempts < 0 || cfg.DedupThreshold < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.DedupThreshold > 100 {
		return errors.New("config: dedup threshold must be at most 100")
	}
	if cfg.PolitenessMin > 0 && cfg.PolitenessMax > 0 && cfg.PolitenessMin > cfg.PolitenessMax {
		return errors.New("config: politeness min exceeds max")
	}
	if cfg.Offline && strings.TrimSpace(cfg.ListingsFile) == "" {
		return errors.New("config: offline mode requires a listings file (or set LISTINGS_FILE)")
	}
	return nil
}
