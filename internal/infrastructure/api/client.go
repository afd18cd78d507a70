package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alekseyt9/pubcrawler/internal/config"
	"github.com/alekseyt9/pubcrawler/internal/domain"
	"github.com/alekseyt9/pubcrawler/internal/ports"
)

const userAgent = "PubCrawler/1.0"

// Client delivers page batches to the publications API with bounded retry.
type Client struct {
	endpoint   string
	retries    int
	retryDelay time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.Deliverer = (*Client)(nil)

// NewClient builds a delivery client from configuration.
func NewClient(cfg config.APIConfig, log *slog.Logger) *Client {
	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		retries:    retries,
		retryDelay: cfg.RetryDelay(),
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		logger:     log,
	}
}

// Deliver posts {"publications": [...]} to the endpoint. Every transport
// error and non-2xx status is retried uniformly up to the attempt budget
// with a fixed delay in between; exhaustion yields a DeliveryError.
func (c *Client) Deliver(ctx context.Context, records []domain.Publication, page int) error {
	if c.endpoint == "" {
		return fmt.Errorf("delivery client misconfigured: empty endpoint")
	}
	if len(records) == 0 {
		c.debug("nothing to deliver", "page", page)
		return nil
	}

	body, err := json.Marshal(struct {
		Publications []domain.Publication `json:"publications"`
	}{Publications: records})
	if err != nil {
		return fmt.Errorf("marshal publications payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		c.info("sending publications to api", "page", page, "count", len(records), "attempt", attempt, "max_attempts", c.retries)

		lastErr = c.post(ctx, body)
		if lastErr == nil {
			c.info("delivered publications", "page", page, "count", len(records))
			return nil
		}

		c.warn("delivery attempt failed", "page", page, "attempt", attempt, "error", lastErr)

		if attempt < c.retries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}

	return &domain.DeliveryError{Page: page, Attempts: c.retries, Err: lastErr}
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("api error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	return nil
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Client) info(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Client) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
