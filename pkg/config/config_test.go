package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// make sure ambient variables do not leak into the defaults
	for _, key := range []string{
		"ENV", "STOCKFINDER_DB_PATH",
		"KIS_APP_KEY", "KIS_APP_SECRET", "KIS_ACCOUNT_NO", "KIS_BASE_URL", "KIS_MAX_PRICE_PAGES",
		"DART_API_KEY", "DART_BASE_URL",
		"HTTP_TIMEOUT", "HTTP_MAX_RETRIES", "HTTP_REQUESTS_PER_SEC",
		"INGEST_WORKERS", "PORT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.Store.Path == "" {
		t.Error("Store.Path must have a default")
	}
	if cfg.KIS.BaseURL != "https://openapi.koreainvestment.com:9443" {
		t.Errorf("KIS.BaseURL = %q", cfg.KIS.BaseURL)
	}
	if cfg.KIS.MaxPricePages != 3 {
		t.Errorf("KIS.MaxPricePages = %d, want 3", cfg.KIS.MaxPricePages)
	}
	if cfg.DART.BaseURL != "https://opendart.fss.or.kr/api" {
		t.Errorf("DART.BaseURL = %q", cfg.DART.BaseURL)
	}
	if cfg.HTTP.Timeout != 20*time.Second {
		t.Errorf("HTTP.Timeout = %v, want 20s", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.MaxRetries != 3 {
		t.Errorf("HTTP.MaxRetries = %d, want 3", cfg.HTTP.MaxRetries)
	}
	if cfg.HTTP.RequestsPerSec != 15 {
		t.Errorf("HTTP.RequestsPerSec = %v, want 15", cfg.HTTP.RequestsPerSec)
	}
	if cfg.Ingest.Workers != 1 {
		t.Errorf("Ingest.Workers = %d, want 1", cfg.Ingest.Workers)
	}
	if cfg.Port != "8099" {
		t.Errorf("Port = %q, want 8099", cfg.Port)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("logging defaults = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("STOCKFINDER_DB_PATH", "/tmp/test.db")
	t.Setenv("KIS_APP_KEY", "key")
	t.Setenv("KIS_MAX_PRICE_PAGES", "10")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("HTTP_REQUESTS_PER_SEC", "2.5")
	t.Setenv("INGEST_WORKERS", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Env != "production" {
		t.Errorf("Env = %q", cfg.Env)
	}
	if cfg.Store.Path != "/tmp/test.db" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.KIS.AppKey != "key" {
		t.Errorf("KIS.AppKey = %q", cfg.KIS.AppKey)
	}
	if cfg.KIS.MaxPricePages != 10 {
		t.Errorf("KIS.MaxPricePages = %d", cfg.KIS.MaxPricePages)
	}
	if cfg.HTTP.Timeout != 5*time.Second {
		t.Errorf("HTTP.Timeout = %v", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.RequestsPerSec != 2.5 {
		t.Errorf("HTTP.RequestsPerSec = %v", cfg.HTTP.RequestsPerSec)
	}
	if cfg.Ingest.Workers != 4 {
		t.Errorf("Ingest.Workers = %d", cfg.Ingest.Workers)
	}
}

func TestLoadMalformedNumbersFallBack(t *testing.T) {
	t.Setenv("KIS_MAX_PRICE_PAGES", "lots")
	t.Setenv("HTTP_REQUESTS_PER_SEC", "fast")
	t.Setenv("HTTP_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.KIS.MaxPricePages != 3 {
		t.Errorf("KIS.MaxPricePages = %d, want default 3", cfg.KIS.MaxPricePages)
	}
	if cfg.HTTP.RequestsPerSec != 15 {
		t.Errorf("HTTP.RequestsPerSec = %v, want default 15", cfg.HTTP.RequestsPerSec)
	}
	if cfg.HTTP.Timeout != 20*time.Second {
		t.Errorf("HTTP.Timeout = %v, want default 20s", cfg.HTTP.Timeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty store path", func(c *Config) { c.Store.Path = "" }, true},
		{"unknown env", func(c *Config) { c.Env = "testing" }, true},
		{"zero workers", func(c *Config) { c.Ingest.Workers = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Env:    "development",
				Store:  StoreConfig{Path: "stockfinder.db"},
				Ingest: IngestConfig{Workers: 1},
			}
			tt.mutate(cfg)

			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
