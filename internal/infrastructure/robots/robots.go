package robots

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/alekseyt9/pubcrawler/internal/ports"
)

const robotsTxtPath = "/robots.txt"

// maxRobotsBodyBytes limits the size of robots.txt responses we will read.
const maxRobotsBodyBytes = 512 * 1024

// Policy checks URLs against the portal's robots.txt. The file is fetched
// lazily, once per process; a missing or unreachable robots.txt allows
// everything.
type Policy struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger

	once     sync.Once
	group    *robotstxt.Group
	delay    time.Duration
	allowAll bool
}

var _ ports.RobotsPolicy = (*Policy)(nil)

// NewPolicy wires the portal base URL and the agent name used for group
// matching.
func NewPolicy(baseURL, userAgent string, client *http.Client, log *slog.Logger) *Policy {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Policy{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: client,
		logger:     log,
	}
}

// Allowed reports whether the crawler may fetch the URL.
func (p *Policy) Allowed(rawURL string) bool {
	p.once.Do(p.load)

	if p.allowAll || p.group == nil {
		return true
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	path := parsed.Path
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}

	return p.group.Test(path)
}

// CrawlDelay returns the delay requested by robots.txt, zero if none.
func (p *Policy) CrawlDelay() time.Duration {
	p.once.Do(p.load)
	return p.delay
}

func (p *Policy) load() {
	data, err := p.fetch()
	if err != nil {
		p.warn("robots.txt unavailable, allowing all", "error", err)
		p.allowAll = true
		return
	}

	p.group = data.FindGroup(p.userAgent)
	if p.group != nil {
		p.delay = p.group.CrawlDelay
	}

	p.info("robots.txt loaded", "crawl_delay", p.delay)
}

func (p *Policy) fetch() (*robotstxt.RobotsData, error) {
	robotsURL := p.baseURL + robotsTxtPath

	resp, err := p.httpClient.Get(robotsURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", robotsURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", robotsURL, err)
	}

	// FromStatusAndBytes treats 4xx as allow-all and 5xx as disallow-all,
	// per the de facto robots.txt convention.
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", robotsURL, err)
	}

	return data, nil
}

func (p *Policy) info(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Policy) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
