package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alekseyt9/pubcrawler/internal/domain"
	"github.com/alekseyt9/pubcrawler/internal/ports"
	"github.com/alekseyt9/pubcrawler/internal/scanner"
)

// CrawlerDeps wires all driven adapters into the crawl loop. Cache,
// Robots and Exporter are optional.
type CrawlerDeps struct {
	Source    ports.PageSource
	Portal    scanner.Portal
	Deliverer ports.Deliverer
	Cache     ports.PublicationCache
	Robots    ports.RobotsPolicy
	Exporter  ports.Exporter
	Logger    *slog.Logger

	SeedURL              string
	MaxPages             int
	Delay                time.Duration
	ErrorDelay           time.Duration
	MaxConsecutiveErrors int
	DetailCrawl          bool
}

// Crawler walks the portal's pagination sequentially: fetch, extract,
// deliver, advance. One browser session, one page in flight.
type Crawler struct {
	source    ports.PageSource
	portal    scanner.Portal
	deliverer ports.Deliverer
	cache     ports.PublicationCache
	robots    ports.RobotsPolicy
	exporter  ports.Exporter
	logger    *slog.Logger

	seedURL              string
	maxPages             int
	delay                time.Duration
	errorDelay           time.Duration
	maxConsecutiveErrors int
	detailCrawl          bool
}

// NewCrawler constructs the orchestration component.
func NewCrawler(deps CrawlerDeps) *Crawler {
	maxErrors := deps.MaxConsecutiveErrors
	if maxErrors < 1 {
		maxErrors = 1
	}

	return &Crawler{
		source:               deps.Source,
		portal:               deps.Portal,
		deliverer:            deps.Deliverer,
		cache:                deps.Cache,
		robots:               deps.Robots,
		exporter:             deps.Exporter,
		logger:               deps.Logger,
		seedURL:              deps.SeedURL,
		maxPages:             deps.MaxPages,
		delay:                deps.Delay,
		errorDelay:           deps.ErrorDelay,
		maxConsecutiveErrors: maxErrors,
		detailCrawl:          deps.DetailCrawl,
	}
}

// Run executes one complete pass over the portal's pagination. Delivery
// failures are logged and skipped; only configuration problems and
// persistent fetch failures abort the run.
func (c *Crawler) Run(ctx context.Context) (domain.CrawlSummary, error) {
	summary := domain.CrawlSummary{StartedAt: time.Now()}
	if c.source == nil || c.portal == nil || c.deliverer == nil {
		return summary, fmt.Errorf("crawler is missing required dependencies")
	}

	if err := c.source.Start(ctx); err != nil {
		summary.FinishedAt = time.Now()
		return summary, &domain.FetchError{Page: 0, URL: c.seedURL, Err: err}
	}
	defer func() {
		_ = c.source.Close(ctx)
	}()

	var all []domain.Publication
	current := c.seedURL
	page := domain.PageNumberFromURL(c.seedURL)
	consecutiveErrors := 0

	for current != "" {
		if c.maxPages > 0 && summary.PagesVisited >= c.maxPages {
			c.info("page ceiling reached, stopping", "max_pages", c.maxPages)
			break
		}

		if c.robots != nil && !c.robots.Allowed(current) {
			c.warn("url blocked by robots.txt, stopping crawl", "url", current)
			break
		}

		c.info("visiting page", "page", page, "url", current)

		html, err := c.source.Fetch(ctx, current)
		if err != nil {
			consecutiveErrors++
			c.logError("page fetch failed", "page", page, "url", current, "consecutive_errors", consecutiveErrors, "error", err)

			if consecutiveErrors >= c.maxConsecutiveErrors {
				summary.FinishedAt = time.Now()
				return summary, &domain.FetchError{Page: page, URL: current, Err: err}
			}
			if err := c.sleep(ctx, c.errorDelay); err != nil {
				summary.FinishedAt = time.Now()
				return summary, err
			}
			continue
		}
		consecutiveErrors = 0

		if !c.portal.Validate(html) {
			c.warn("page does not look like a publications listing", "page", page, "url", current)
		}

		records, err := c.portal.Extract(html, page)
		if err != nil {
			c.logError("extraction failed, skipping page", "page", page, "error", err)
			records = nil
		}
		c.info("extracted records", "page", page, "count", len(records))
		summary.RecordsExtracted += len(records)

		fresh, err := c.filterSeen(ctx, records)
		if err != nil {
			c.warn("publication cache unavailable, treating all records as new", "error", err)
			fresh = records
		}

		if c.detailCrawl {
			fresh = c.enrichDetails(ctx, fresh)
		}

		all = append(all, fresh...)

		if len(fresh) > 0 {
			if err := c.deliverer.Deliver(ctx, fresh, page); err != nil {
				summary.DeliveryFailures++
				c.warn("delivery failed, continuing with next page", "page", page, "error", err)
			} else {
				summary.RecordsDelivered += len(fresh)
				c.markDelivered(ctx, fresh)
			}
		}

		summary.PagesVisited++

		next := c.portal.NextPageURL(html, current)
		if next == "" {
			c.info("no next page control found, reached end of pagination", "page", page)
			break
		}

		if err := c.sleep(ctx, c.pageDelay()); err != nil {
			summary.FinishedAt = time.Now()
			return summary, err
		}

		nextPage := domain.PageNumberFromURL(next)
		if nextPage <= page {
			nextPage = page + 1
		}
		current, page = next, nextPage
	}

	summary.FinishedAt = time.Now()
	c.logStatistics(Statistics(all))

	if c.exporter != nil {
		if err := c.exporter.Export(all); err != nil {
			c.warn("csv export failed", "error", err)
		}
	}

	return summary, nil
}

// pageDelay honors the robots.txt crawl-delay when it exceeds the
// configured inter-page delay.
func (c *Crawler) pageDelay() time.Duration {
	delay := c.delay
	if c.robots != nil {
		if robotsDelay := c.robots.CrawlDelay(); robotsDelay > delay {
			delay = robotsDelay
		}
	}
	return delay
}

func (c *Crawler) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// filterSeen drops records already delivered in earlier runs.
func (c *Crawler) filterSeen(ctx context.Context, records []domain.Publication) ([]domain.Publication, error) {
	if c.cache == nil || len(records) == 0 {
		return records, nil
	}

	titles := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.Title != "" {
			titles = append(titles, rec.Title)
		}
	}

	seen, err := c.cache.Seen(ctx, titles)
	if err != nil {
		return nil, fmt.Errorf("load seen publications: %w", err)
	}

	fresh := make([]domain.Publication, 0, len(records))
	for _, rec := range records {
		if seen[rec.Title] {
			c.debug("skipping already delivered publication", "title", rec.Title)
			continue
		}
		fresh = append(fresh, rec)
	}
	return fresh, nil
}

// enrichDetails visits each record's detail page for the abstract and the
// full author list. Failures keep the listing data.
func (c *Crawler) enrichDetails(ctx context.Context, records []domain.Publication) []domain.Publication {
	enriched := make([]domain.Publication, 0, len(records))
	for _, rec := range records {
		if rec.PublicationLink == "" {
			enriched = append(enriched, rec)
			continue
		}
		if c.robots != nil && !c.robots.Allowed(rec.PublicationLink) {
			c.warn("detail page blocked by robots.txt", "url", rec.PublicationLink)
			enriched = append(enriched, rec)
			continue
		}

		html, err := c.source.Fetch(ctx, rec.PublicationLink)
		if err != nil {
			c.warn("detail fetch failed, keeping listing data", "title", rec.Title, "error", err)
			enriched = append(enriched, rec)
			continue
		}

		enriched = append(enriched, c.portal.ParseDetail(html, rec))
	}
	return enriched
}

func (c *Crawler) markDelivered(ctx context.Context, records []domain.Publication) {
	if c.cache == nil {
		return
	}
	if err := c.cache.MarkDelivered(ctx, records); err != nil {
		c.warn("cannot record delivered publications", "error", err)
	}
}

// Statistics computes corpus-level numbers for the run summary log.
func Statistics(records []domain.Publication) domain.Statistics {
	stats := domain.Statistics{TotalPublications: len(records)}
	if len(records) == 0 {
		return stats
	}

	authors := map[string]struct{}{}
	pages := map[int]struct{}{}
	minYear, maxYear := 0, 0

	for _, rec := range records {
		pages[rec.PageNumber] = struct{}{}
		for _, name := range strings.Split(rec.Authors, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				authors[name] = struct{}{}
			}
		}
		if rec.Year == 0 {
			continue
		}
		if minYear == 0 || rec.Year < minYear {
			minYear = rec.Year
		}
		if rec.Year > maxYear {
			maxYear = rec.Year
		}
	}

	stats.UniqueAuthors = len(authors)
	stats.PagesCrawled = len(pages)
	if minYear != 0 {
		stats.YearRange = fmt.Sprintf("%d - %d", minYear, maxYear)
	}

	return stats
}

func (c *Crawler) logStatistics(stats domain.Statistics) {
	c.info("crawl statistics",
		"total_publications", stats.TotalPublications,
		"unique_authors", stats.UniqueAuthors,
		"year_range", stats.YearRange,
		"pages_crawled", stats.PagesCrawled,
	)
}

func (c *Crawler) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Crawler) info(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Crawler) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Crawler) logError(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}
