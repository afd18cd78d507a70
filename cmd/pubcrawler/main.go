package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/alekseyt9/pubcrawler/internal/app"
	"github.com/alekseyt9/pubcrawler/internal/config"
	"github.com/alekseyt9/pubcrawler/internal/domain"
	"github.com/alekseyt9/pubcrawler/internal/logging"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.File)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) {
			logger.Error("crawl aborted: portal unreachable", "page", fetchErr.Page, "url", fetchErr.URL, "error", fetchErr.Err)
		} else {
			logger.Error("application stopped", "error", err)
		}
		os.Exit(1)
	}
}
