package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alekseyt9/pubcrawler/internal/config"
	"github.com/alekseyt9/pubcrawler/internal/domain"
)

func testConfig(endpoint string, retries int) config.APIConfig {
	return config.APIConfig{
		Endpoint:          endpoint,
		TimeoutSeconds:    5,
		Retries:           retries,
		RetryDelaySeconds: 0,
	}
}

func someRecords() []domain.Publication {
	return []domain.Publication{
		{Title: "Paper One", Year: 2023, Authors: "Doe, J.", PageNumber: 0},
		{Title: "Paper Two", Authors: "Smith, K.", PageNumber: 0},
	}
}

func TestDeliverSuccess(t *testing.T) {
	t.Parallel()

	var calls int32
	var received struct {
		Publications []domain.Publication `json:"publications"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("unmarshal payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL, 3), nil)
	if err := client.Deliver(context.Background(), someRecords(), 0); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}

	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if len(received.Publications) != 2 {
		t.Fatalf("expected 2 publications in payload, got %d", len(received.Publications))
	}
	if received.Publications[0].Title != "Paper One" {
		t.Fatalf("unexpected first title: %q", received.Publications[0].Title)
	}
}

func TestDeliverRetriesExactlyConfiguredTimes(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL, 3), nil)
	err := client.Deliver(context.Background(), someRecords(), 4)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}

	var deliveryErr *domain.DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("expected DeliveryError, got %T: %v", err, err)
	}
	if deliveryErr.Page != 4 {
		t.Fatalf("unexpected page in error: %d", deliveryErr.Page)
	}
	if deliveryErr.Attempts != 3 {
		t.Fatalf("unexpected attempts in error: %d", deliveryErr.Attempts)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected exactly 3 calls, got %d", calls)
	}
}

func TestDeliverRecoversMidway(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL, 3), nil)
	if err := client.Deliver(context.Background(), someRecords(), 0); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDeliverEmptyBatchIsNoop(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected for empty batch")
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL, 3), nil)
	if err := client.Deliver(context.Background(), nil, 0); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
}

func TestDeliverCancelledContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(server.URL, 3)
	cfg.RetryDelaySeconds = 60
	client := NewClient(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Deliver(ctx, someRecords(), 0)
	if err == nil {
		t.Fatal("expected error with cancelled context")
	}
}
