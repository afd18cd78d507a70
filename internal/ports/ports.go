package ports

import (
	"context"
	"time"

	"github.com/alekseyt9/pubcrawler/internal/domain"
)

// PageSource renders listing and detail pages into HTML. Implementations
// own exactly one browser session between Start and Close.
type PageSource interface {
	Start(ctx context.Context) error
	Fetch(ctx context.Context, url string) (string, error)
	Close(ctx context.Context) error
}

// Deliverer pushes one page's batch of records to the remote API.
type Deliverer interface {
	Deliver(ctx context.Context, records []domain.Publication, page int) error
}

// PublicationCache answers which publications were already delivered in
// earlier runs and records newly delivered ones.
type PublicationCache interface {
	Seen(ctx context.Context, titles []string) (map[string]bool, error)
	MarkDelivered(ctx context.Context, records []domain.Publication) error
}

// RobotsPolicy gates URLs against the portal's robots.txt rules.
type RobotsPolicy interface {
	Allowed(url string) bool
	CrawlDelay() time.Duration
}

// Exporter writes a run's records to a local snapshot (CSV).
type Exporter interface {
	Export(records []domain.Publication) error
}

// Scheduler controls when crawls execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
