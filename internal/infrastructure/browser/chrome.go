package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"

	"github.com/alekseyt9/pubcrawler/internal/config"
	"github.com/alekseyt9/pubcrawler/internal/ports"
	"github.com/alekseyt9/pubcrawler/pkg/logger"
)

// ChromeSource renders pages in a single headless Chrome session managed
// through chromedp. The session lives between Start and Close; Fetch is
// strictly sequential.
type ChromeSource struct {
	cfg    config.BrowserConfig
	logger *slog.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

var _ ports.PageSource = (*ChromeSource)(nil)

// NewChromeSource captures browser settings; the session starts lazily.
func NewChromeSource(cfg config.BrowserConfig, log *slog.Logger) *ChromeSource {
	return &ChromeSource{cfg: cfg, logger: log}
}

// Start launches the Chrome allocator and a browser context.
func (s *ChromeSource) Start(ctx context.Context) error {
	if s.browserCtx != nil {
		return nil
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !s.cfg.Headful),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(s.cfg.WindowWidth, s.cfg.WindowHeight),
		chromedp.UserAgent(s.cfg.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(logger.New("chromedp").Printf),
	)

	// Starting the browser eagerly surfaces launch failures here instead
	// of on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("start chrome session: %w", err)
	}

	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel

	s.debug("chrome session started", "headless", !s.cfg.Headful)
	return nil
}

// Fetch navigates to the URL, waits for scripts to settle and returns the
// rendered document.
func (s *ChromeSource) Fetch(ctx context.Context, url string) (string, error) {
	if s.browserCtx == nil {
		return "", fmt.Errorf("chrome session not started")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	navCtx := s.browserCtx
	cancel := context.CancelFunc(func() {})
	if timeout := s.cfg.PageTimeout(); timeout > 0 {
		navCtx, cancel = context.WithTimeout(navCtx, timeout)
	}
	defer cancel()

	var html string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(s.cfg.Settle()),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}

	if html == "" {
		return "", fmt.Errorf("render %s: empty document", url)
	}

	return html, nil
}

// Close tears down the browser session.
func (s *ChromeSource) Close(ctx context.Context) error {
	if s.browserCancel != nil {
		s.browserCancel()
		s.browserCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	s.browserCtx = nil

	s.debug("chrome session closed")
	return nil
}

func (s *ChromeSource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
