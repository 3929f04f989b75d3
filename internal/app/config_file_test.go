package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFile_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "carfinder.yaml")
	content := `listen: ":8081"
sources:
  fast: 5
  timeout: 20s
  politenessMin: 500ms
  politenessMax: 1s
partners:
  ebay:
    appID: file-app
    certID: file-cert
listings:
  file: ./fixtures/listings.json
cors:
  origins: ["https://carfinder.example"]
render:
  disable: true
`
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	fc, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg := DefaultConfig()
	cfg.FullCount = 20 // explicit flag
	ApplyFileConfig(&cfg, fc)

	if cfg.ListenAddr != ":8081" {
		t.Fatalf("ListenAddr=%q", cfg.ListenAddr)
	}
	if cfg.FastCount != 5 || cfg.FullCount != 20 {
		t.Fatalf("counts=%d,%d, want 5,20", cfg.FastCount, cfg.FullCount)
	}
	if cfg.SourceTimeout != 20*time.Second {
		t.Fatalf("SourceTimeout=%v", cfg.SourceTimeout)
	}
	if cfg.PolitenessMin != 500*time.Millisecond || cfg.PolitenessMax != time.Second {
		t.Fatalf("politeness=%v..%v", cfg.PolitenessMin, cfg.PolitenessMax)
	}
	if cfg.EbayAppID != "file-app" || cfg.EbayCertID != "file-cert" {
		t.Fatalf("ebay creds not applied: %+v", cfg)
	}
	if cfg.ListingsFile != "./fixtures/listings.json" {
		t.Fatalf("ListingsFile=%q", cfg.ListingsFile)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://carfinder.example" {
		t.Fatalf("CORSOrigins=%v", cfg.CORSOrigins)
	}
	if !cfg.DisableRender {
		t.Fatalf("render.disable not applied")
	}
}

func TestLoadConfigFile_JSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "carfinder.json")
	if err := os.WriteFile(p, []byte(`{"listen":":9000","listings":{"offline":true,"file":"l.json"}}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	fc, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := DefaultConfig()
	ApplyFileConfig(&cfg, fc)
	if cfg.ListenAddr != ":9000" || !cfg.Offline || cfg.ListingsFile != "l.json" {
		t.Fatalf("json overlay not applied: %+v", cfg)
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(DefaultConfig()); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	bad := []Config{
		func() Config { c := DefaultConfig(); c.ListenAddr = " "; return c }(),
		func() Config { c := DefaultConfig(); c.FastCount = -1; return c }(),
		func() Config { c := DefaultConfig(); c.DedupThreshold = 101; return c }(),
		func() Config {
			c := DefaultConfig()
			c.PolitenessMin, c.PolitenessMax = 2*time.Second, time.Second
			return c
		}(),
	}
	for i, c := range bad {
		if err := ValidateConfig(c); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestWithDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := WithDefaults(Config{FastCount: 3, ListenAddr: ":1234"})
	if cfg.FastCount != 3 || cfg.ListenAddr != ":1234" {
		t.Fatalf("explicit values lost: %+v", cfg)
	}
	if cfg.FullCount != fullCountDefault || cfg.SourceTimeout != sourceTimeoutDefault || cfg.FetchAttempts != 1 {
		t.Fatalf("defaults not filled: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("CORSOrigins=%v", cfg.CORSOrigins)
	}
}
