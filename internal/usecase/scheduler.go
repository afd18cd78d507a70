package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alekseyt9/pubcrawler/internal/ports"
)

// Scheduler wires the cron driver with recurring crawls. Crawls never
// overlap: the crawler holds one browser session with one page in flight,
// so a trigger that fires while a run is still going is dropped.
type Scheduler struct {
	driver  ports.Scheduler
	crawler *Crawler
	logger  *slog.Logger
	running atomic.Bool
}

// NewScheduler returns a helper to start/stop recurring crawls.
func NewScheduler(driver ports.Scheduler, crawler *Crawler, log *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, crawler: crawler, logger: log}
}

// Start registers the crawl with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.crawler == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if !s.running.CompareAndSwap(false, true) {
			if s.logger != nil {
				s.logger.Warn("previous crawl still running, skipping trigger", "trigger", trigger)
			}
			return
		}
		defer s.running.Store(false)

		summary, err := s.crawler.Run(ctx)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("scheduled crawl failed", "trigger", trigger, "error", err)
			}
			return
		}
		if s.logger != nil {
			s.logger.Info("scheduled crawl finished",
				"trigger", trigger,
				"pages", summary.PagesVisited,
				"delivered", summary.RecordsDelivered,
			)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
