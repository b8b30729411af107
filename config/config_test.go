package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing domain and stores file",
			mutate:  func(cfg *Config) { cfg.Domain = "" },
			wantErr: "domain",
		},
		{
			name:    "domain without host",
			mutate:  func(cfg *Config) { cfg.Domain = "https://" },
			wantErr: "host",
		},
		{
			name: "no handles and no discovery",
			mutate: func(cfg *Config) {
				cfg.Discover = false
				cfg.Handles = nil
			},
			wantErr: "discovery",
		},
		{
			name:    "zero max products",
			mutate:  func(cfg *Config) { cfg.MaxProducts = 0 },
			wantErr: "max products",
		},
		{
			name:    "negative parallelism",
			mutate:  func(cfg *Config) { cfg.Parallelism = -1 },
			wantErr: "parallelism",
		},
		{
			name:    "zero timeout",
			mutate:  func(cfg *Config) { cfg.Timeout = 0 },
			wantErr: "timeout",
		},
		{
			name:    "negative rps",
			mutate:  func(cfg *Config) { cfg.DomainRPS = -1 },
			wantErr: "rps",
		},
		{
			name:    "unknown format",
			mutate:  func(cfg *Config) { cfg.OutputFormat = "xml" },
			wantErr: "output format",
		},
		{
			name:    "empty user agent",
			mutate:  func(cfg *Config) { cfg.UserAgent = "" },
			wantErr: "user agent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Domain = "store.myshopify.com"
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Domain = "store.myshopify.com"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestConfigValidateSchemelessDomain(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Domain = "shop.example.com"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("schemeless domain should validate: %v", err)
	}
}

func TestLoadStores(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stores.yaml")
	content := "stores:\n  - shop-a.myshopify.com\n  - https://shop-b.example.com\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	stores, err := LoadStores(path)
	if err != nil {
		t.Fatalf("LoadStores() error: %v", err)
	}
	if len(stores) != 2 || stores[0] != "shop-a.myshopify.com" || stores[1] != "https://shop-b.example.com" {
		t.Errorf("stores = %v", stores)
	}
}

func TestLoadStoresEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stores.yaml")
	if err := os.WriteFile(path, []byte("stores: []\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := LoadStores(path); err == nil {
		t.Fatal("expected error for empty stores list")
	}
}

func TestLoadStoresMissingFile(t *testing.T) {
	if _, err := LoadStores(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("SCRAPER_TEST_INT", "42")
	value, ok, err := EnvInt("SCRAPER_TEST_INT")
	if err != nil || !ok || value != 42 {
		t.Fatalf("EnvInt() = %d, %v, %v", value, ok, err)
	}

	t.Setenv("SCRAPER_TEST_INT", "nope")
	if _, _, err := EnvInt("SCRAPER_TEST_INT"); err == nil {
		t.Fatal("expected parse error")
	}

	if _, ok, _ := EnvInt("SCRAPER_TEST_INT_UNSET"); ok {
		t.Fatal("unset variable should not report ok")
	}
}
