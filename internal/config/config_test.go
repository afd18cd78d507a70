package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func clearCrawlerEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{configPathEnv, apiEndpointEnv, apiTimeoutEnv, apiRetriesEnv, seedURLEnv, databaseDSNEnv} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadFailsWithoutEndpoint(t *testing.T) {
	clearCrawlerEnv(t)

	_, err := Load()
	if !errors.Is(err, ErrMissingEndpoint) {
		t.Fatalf("expected ErrMissingEndpoint, got %v", err)
	}
}

func TestLoadDefaultsWithEndpoint(t *testing.T) {
	clearCrawlerEnv(t)
	t.Setenv(apiEndpointEnv, "https://api.example.org/publications")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.API.Endpoint != "https://api.example.org/publications" {
		t.Fatalf("unexpected endpoint: %q", cfg.API.Endpoint)
	}
	if cfg.API.TimeoutSeconds != 30 {
		t.Fatalf("expected default timeout 30, got %d", cfg.API.TimeoutSeconds)
	}
	if cfg.API.Retries != 3 {
		t.Fatalf("expected default retries 3, got %d", cfg.API.Retries)
	}
	if cfg.Portal.SeedURL == "" {
		t.Fatal("expected a default seed url")
	}
	if cfg.Robots.Ignore {
		t.Fatal("robots compliance should default to on")
	}
	if cfg.Browser.Headful {
		t.Fatal("browser should default to headless")
	}
}

func TestEnvOverridesWin(t *testing.T) {
	clearCrawlerEnv(t)
	t.Setenv(apiEndpointEnv, "https://api.example.org/publications")
	t.Setenv(apiTimeoutEnv, "12")
	t.Setenv(apiRetriesEnv, "7")
	t.Setenv(seedURLEnv, "https://portal.example.org/?page=0")
	t.Setenv(databaseDSNEnv, "postgres://crawler@localhost/cache")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.API.TimeoutSeconds != 12 {
		t.Fatalf("API_TIMEOUT not applied: %d", cfg.API.TimeoutSeconds)
	}
	if cfg.API.Retries != 7 {
		t.Fatalf("API_RETRIES not applied: %d", cfg.API.Retries)
	}
	if cfg.Portal.SeedURL != "https://portal.example.org/?page=0" {
		t.Fatalf("SEED_URL not applied: %q", cfg.Portal.SeedURL)
	}
	if cfg.Database.DSN != "postgres://crawler@localhost/cache" {
		t.Fatalf("DATABASE_DSN not applied: %q", cfg.Database.DSN)
	}
}

func TestYamlFileMergedUnderEnv(t *testing.T) {
	clearCrawlerEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
portal:
  seedUrl: https://from-file.example.org/?page=0
api:
  endpoint: https://from-file.example.org/api
  retries: 5
crawl:
  maxPages: 4
  delaySeconds: 1
robots:
  ignore: true
browser:
  headful: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(apiRetriesEnv, "9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.API.Endpoint != "https://from-file.example.org/api" {
		t.Fatalf("yaml endpoint not applied: %q", cfg.API.Endpoint)
	}
	if cfg.API.Retries != 9 {
		t.Fatalf("env must win over yaml, got retries %d", cfg.API.Retries)
	}
	if cfg.Crawl.MaxPages != 4 {
		t.Fatalf("yaml maxPages not applied: %d", cfg.Crawl.MaxPages)
	}
	if cfg.Crawl.DelaySeconds != 1 {
		t.Fatalf("yaml delaySeconds not applied: %d", cfg.Crawl.DelaySeconds)
	}
	if !cfg.Robots.Ignore {
		t.Fatal("yaml robots.ignore not applied")
	}
	if !cfg.Browser.Headful {
		t.Fatal("yaml browser.headful not applied")
	}
}

func TestInvalidRetriesRejected(t *testing.T) {
	clearCrawlerEnv(t)
	t.Setenv(apiEndpointEnv, "https://api.example.org/publications")
	t.Setenv(apiRetriesEnv, "-1")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error for negative retries")
	}
}
