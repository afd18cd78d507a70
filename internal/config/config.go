package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv  = "PUBCRAWLER_CONFIG"
	apiEndpointEnv = "API_ENDPOINT"
	apiTimeoutEnv  = "API_TIMEOUT"
	apiRetriesEnv  = "API_RETRIES"
	seedURLEnv     = "SEED_URL"
	databaseDSNEnv = "DATABASE_DSN"

	defaultTimezone = "UTC"
)

// ErrMissingEndpoint is returned by Validate when no API endpoint is
// configured; the crawl must not start without one.
var ErrMissingEndpoint = errors.New("api endpoint is not configured (set API_ENDPOINT)")

// ErrMissingSeedURL is returned by Validate when there is no page to start
// crawling from.
var ErrMissingSeedURL = errors.New("seed url is not configured")

// Config holds high-level settings required across the application.
type Config struct {
	Portal    PortalConfig    `yaml:"portal"`
	Crawl     CrawlConfig     `yaml:"crawl"`
	API       APIConfig       `yaml:"api"`
	Browser   BrowserConfig   `yaml:"browser"`
	Robots    RobotsConfig    `yaml:"robots"`
	Database  DatabaseConfig  `yaml:"database"`
	Export    ExportConfig    `yaml:"export"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PortalConfig identifies the target site and the parsing strategy for it.
type PortalConfig struct {
	Name    string `yaml:"name"`
	Scanner string `yaml:"scanner"`
	BaseURL string `yaml:"baseUrl"`
	SeedURL string `yaml:"seedUrl"`
}

// CrawlConfig bounds the pagination loop.
type CrawlConfig struct {
	DelaySeconds         int  `yaml:"delaySeconds"`
	ErrorDelaySeconds    int  `yaml:"errorDelaySeconds"`
	MaxPages             int  `yaml:"maxPages"`
	MaxConsecutiveErrors int  `yaml:"maxConsecutiveErrors"`
	DetailCrawl          bool `yaml:"detailCrawl"`
}

// Delay is the pause between listing pages.
func (c CrawlConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds) * time.Second
}

// ErrorDelay is the pause after a failed page load before retrying.
func (c CrawlConfig) ErrorDelay() time.Duration {
	return time.Duration(c.ErrorDelaySeconds) * time.Second
}

// APIConfig describes the delivery endpoint and its retry policy.
type APIConfig struct {
	Endpoint          string `yaml:"endpoint"`
	TimeoutSeconds    int    `yaml:"timeoutSeconds"`
	Retries           int    `yaml:"retries"`
	RetryDelaySeconds int    `yaml:"retryDelaySeconds"`
}

// Timeout is the per-call HTTP timeout.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// RetryDelay is the fixed pause between delivery attempts.
func (a APIConfig) RetryDelay() time.Duration {
	return time.Duration(a.RetryDelaySeconds) * time.Second
}

// BrowserConfig tunes the Chrome session. Headless is the default;
// Headful opts into a visible browser window.
type BrowserConfig struct {
	Headful            bool   `yaml:"headful"`
	UserAgent          string `yaml:"userAgent"`
	WindowWidth        int    `yaml:"windowWidth"`
	WindowHeight       int    `yaml:"windowHeight"`
	PageTimeoutSeconds int    `yaml:"pageTimeoutSeconds"`
	SettleSeconds      int    `yaml:"settleSeconds"`
}

// PageTimeout bounds a single navigation.
func (b BrowserConfig) PageTimeout() time.Duration {
	return time.Duration(b.PageTimeoutSeconds) * time.Second
}

// Settle is the extra wait after navigation for scripts to render.
func (b BrowserConfig) Settle() time.Duration {
	return time.Duration(b.SettleSeconds) * time.Second
}

// RobotsConfig toggles robots.txt compliance. Compliance is on unless
// explicitly ignored.
type RobotsConfig struct {
	Ignore    bool   `yaml:"ignore"`
	UserAgent string `yaml:"userAgent"`
}

// DatabaseConfig describes the optional Postgres publication cache.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ExportConfig enables the CSV snapshot when a path is set.
type ExportConfig struct {
	CSVPath string `yaml:"csvPath"`
}

// SchedulerConfig makes the crawl recur; empty expression means one shot.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LoggingConfig controls level and the optional append-only log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads YAML configuration (if present), applies environment
// overrides and validates the result.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate enforces the settings without which a run cannot start.
func (c Config) Validate() error {
	if c.API.Endpoint == "" {
		return ErrMissingEndpoint
	}
	if c.Portal.SeedURL == "" {
		return ErrMissingSeedURL
	}
	if c.API.Retries < 1 {
		return fmt.Errorf("api retries must be at least 1, got %d", c.API.Retries)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(apiEndpointEnv); v != "" {
		c.API.Endpoint = v
	}

	if v := os.Getenv(apiTimeoutEnv); v != "" {
		if seconds, err := strconv.Atoi(v); err != nil {
			log.Printf("config: invalid %s=%q, keeping %d", apiTimeoutEnv, v, c.API.TimeoutSeconds)
		} else {
			c.API.TimeoutSeconds = seconds
		}
	}

	if v := os.Getenv(apiRetriesEnv); v != "" {
		if retries, err := strconv.Atoi(v); err != nil {
			log.Printf("config: invalid %s=%q, keeping %d", apiRetriesEnv, v, c.API.Retries)
		} else {
			c.API.Retries = retries
		}
	}

	if v := os.Getenv(seedURLEnv); v != "" {
		c.Portal.SeedURL = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Portal.Name != "" {
		base.Portal.Name = override.Portal.Name
	}
	if override.Portal.Scanner != "" {
		base.Portal.Scanner = override.Portal.Scanner
	}
	if override.Portal.BaseURL != "" {
		base.Portal.BaseURL = override.Portal.BaseURL
	}
	if override.Portal.SeedURL != "" {
		base.Portal.SeedURL = override.Portal.SeedURL
	}

	if override.Crawl.DelaySeconds > 0 {
		base.Crawl.DelaySeconds = override.Crawl.DelaySeconds
	}
	if override.Crawl.ErrorDelaySeconds > 0 {
		base.Crawl.ErrorDelaySeconds = override.Crawl.ErrorDelaySeconds
	}
	if override.Crawl.MaxPages > 0 {
		base.Crawl.MaxPages = override.Crawl.MaxPages
	}
	if override.Crawl.MaxConsecutiveErrors > 0 {
		base.Crawl.MaxConsecutiveErrors = override.Crawl.MaxConsecutiveErrors
	}
	if override.Crawl.DetailCrawl {
		base.Crawl.DetailCrawl = true
	}

	if override.API.Endpoint != "" {
		base.API.Endpoint = override.API.Endpoint
	}
	if override.API.TimeoutSeconds > 0 {
		base.API.TimeoutSeconds = override.API.TimeoutSeconds
	}
	if override.API.Retries > 0 {
		base.API.Retries = override.API.Retries
	}
	if override.API.RetryDelaySeconds > 0 {
		base.API.RetryDelaySeconds = override.API.RetryDelaySeconds
	}

	if override.Browser.Headful {
		base.Browser.Headful = true
	}
	if override.Browser.UserAgent != "" {
		base.Browser.UserAgent = override.Browser.UserAgent
	}
	if override.Browser.WindowWidth > 0 {
		base.Browser.WindowWidth = override.Browser.WindowWidth
	}
	if override.Browser.WindowHeight > 0 {
		base.Browser.WindowHeight = override.Browser.WindowHeight
	}
	if override.Browser.PageTimeoutSeconds > 0 {
		base.Browser.PageTimeoutSeconds = override.Browser.PageTimeoutSeconds
	}
	if override.Browser.SettleSeconds > 0 {
		base.Browser.SettleSeconds = override.Browser.SettleSeconds
	}

	if override.Robots.UserAgent != "" {
		base.Robots.UserAgent = override.Robots.UserAgent
	}
	if override.Robots.Ignore {
		base.Robots.Ignore = true
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Export.CSVPath != "" {
		base.Export.CSVPath = override.Export.CSVPath
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Portal: PortalConfig{
			Name:    "coventry-pureportal",
			Scanner: "pureportal",
			BaseURL: "https://pureportal.coventry.ac.uk",
			SeedURL: "https://pureportal.coventry.ac.uk/en/organisations/fbl-school-of-economics-finance-and-accounting/publications/?page=0",
		},
		Crawl: CrawlConfig{
			DelaySeconds:         3,
			ErrorDelaySeconds:    10,
			MaxPages:             100,
			MaxConsecutiveErrors: 5,
			DetailCrawl:          false,
		},
		API: APIConfig{
			Endpoint:          "",
			TimeoutSeconds:    30,
			Retries:           3,
			RetryDelaySeconds: 5,
		},
		Browser: BrowserConfig{
			UserAgent:          "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			WindowWidth:        1920,
			WindowHeight:       1080,
			PageTimeoutSeconds: 30,
			SettleSeconds:      2,
		},
		Robots: RobotsConfig{
			Ignore:    false,
			UserAgent: "PubCrawler",
		},
		Database:  DatabaseConfig{DSN: ""},
		Export:    ExportConfig{CSVPath: ""},
		Scheduler: SchedulerConfig{CronExpression: "", Timezone: defaultTimezone, location: tz},
		Logging:   LoggingConfig{Level: "info", File: ""},
	}
}
