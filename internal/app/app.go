package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/alekseyt9/pubcrawler/internal/config"
	"github.com/alekseyt9/pubcrawler/internal/infrastructure/api"
	"github.com/alekseyt9/pubcrawler/internal/infrastructure/browser"
	"github.com/alekseyt9/pubcrawler/internal/infrastructure/export"
	"github.com/alekseyt9/pubcrawler/internal/infrastructure/parser"
	"github.com/alekseyt9/pubcrawler/internal/infrastructure/robots"
	"github.com/alekseyt9/pubcrawler/internal/infrastructure/scheduler"
	"github.com/alekseyt9/pubcrawler/internal/infrastructure/storage"
	"github.com/alekseyt9/pubcrawler/internal/logging"
	"github.com/alekseyt9/pubcrawler/internal/ports"
	"github.com/alekseyt9/pubcrawler/internal/scanner"
	"github.com/alekseyt9/pubcrawler/internal/usecase"
)

// Application wires configs to the crawl use case and its lifecycle.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	crawler *usecase.Crawler
	db      *sql.DB
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.File)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewPurePortal(cfg.Portal.BaseURL, baseLogger.With("component", "parser.pureportal")))

	portal, err := registry.Resolve(cfg.Portal.Scanner)
	if err != nil {
		return nil, fmt.Errorf("resolve portal strategy: %w", err)
	}

	var db *sql.DB
	var cache ports.PublicationCache
	if cfg.Database.DSN != "" {
		db, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open publication cache db: %w", err)
		}
		cache = storage.NewPostgresRepository(db)
	}

	var robotsPolicy ports.RobotsPolicy
	if !cfg.Robots.Ignore {
		robotsPolicy = robots.NewPolicy(cfg.Portal.BaseURL, cfg.Robots.UserAgent, nil,
			baseLogger.With("component", "robots"))
	}

	var exporter ports.Exporter
	if cfg.Export.CSVPath != "" {
		exporter = export.NewCSVExporter(cfg.Export.CSVPath, baseLogger.With("component", "export"))
	}

	crawler := usecase.NewCrawler(usecase.CrawlerDeps{
		Source:               browser.NewChromeSource(cfg.Browser, baseLogger.With("component", "browser")),
		Portal:               portal,
		Deliverer:            api.NewClient(cfg.API, baseLogger.With("component", "api")),
		Cache:                cache,
		Robots:               robotsPolicy,
		Exporter:             exporter,
		Logger:               baseLogger.With("component", "crawler"),
		SeedURL:              cfg.Portal.SeedURL,
		MaxPages:             cfg.Crawl.MaxPages,
		Delay:                cfg.Crawl.Delay(),
		ErrorDelay:           cfg.Crawl.ErrorDelay(),
		MaxConsecutiveErrors: cfg.Crawl.MaxConsecutiveErrors,
		DetailCrawl:          cfg.Crawl.DetailCrawl,
	})

	return &Application{cfg: cfg, logger: baseLogger, crawler: crawler, db: db}, nil
}

// Run executes a single crawl, or keeps crawling on a cron expression
// when one is configured. Blocks until done or interrupted.
func (a *Application) Run(ctx context.Context) error {
	defer a.closeDB()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.Scheduler.CronExpression == "" {
		summary, err := a.crawler.Run(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("crawl finished",
			"pages", summary.PagesVisited,
			"extracted", summary.RecordsExtracted,
			"delivered", summary.RecordsDelivered,
			"delivery_failures", summary.DeliveryFailures,
			"duration", summary.Duration(),
		)
		return nil
	}

	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.crawler, a.logger.With("component", "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression)

	<-ctx.Done()
	return sched.Stop(context.Background())
}

func (a *Application) closeDB() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing publication cache db", "error", err)
	}
}
