package renderer

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	v1 "reelforge/internal/contracts/renderer/v1"
	"reelforge/internal/pkg/errors"
	"reelforge/internal/pkg/logger"
)

func testClient(baseURL string) *HTTPClient {
	var buf bytes.Buffer
	c := NewHTTPClient(Config{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Log:     logger.New(logger.Config{Level: "error", Format: "json", Output: &buf}),
	})
	c.backoffBase = 5 * time.Millisecond
	return c
}

func TestSubmitReturnsRenderID(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"response":{"id":"rnd_123","status":"queued"}}`))
	}))
	defer srv.Close()

	id, err := testClient(srv.URL).Submit(context.Background(), &v1.RenderSpec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "rnd_123" {
		t.Errorf("id = %q, want rnd_123", id)
	}
	if gotKey != "test-key" {
		t.Errorf("x-api-key = %q, want test-key", gotKey)
	}
}

func TestSubmitMissingIDIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"status":"queued"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Submit(context.Background(), &v1.RenderSpec{})
	if err == nil {
		t.Fatal("expected error for missing render id")
	}
	if errors.GetCode(err) != errors.CodeRenderFailed {
		t.Errorf("unexpected code: %v", errors.GetCode(err))
	}
}

func TestSubmitRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"response":{"id":"rnd_9","status":"queued"}}`))
	}))
	defer srv.Close()

	id, err := testClient(srv.URL).Submit(context.Background(), &v1.RenderSpec{})
	if err != nil {
		t.Fatalf("expected retry to recover, got: %v", err)
	}
	if id != "rnd_9" {
		t.Errorf("id = %q", id)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestSubmitDoesNotRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"bad timeline"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Submit(context.Background(), &v1.RenderSpec{})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("4xx must not be retried, got %d attempts", calls.Load())
	}
}

func TestSubmitGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Submit(context.Background(), &v1.RenderSpec{})
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if calls.Load() != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", calls.Load())
	}
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/render/rnd_5" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"response":{"id":"rnd_5","status":"done","url":"https://cdn/out.mp4","progress":100}}`))
	}))
	defer srv.Close()

	state, err := testClient(srv.URL).Status(context.Background(), "rnd_5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Status != v1.StateDone || state.URL != "https://cdn/out.mp4" {
		t.Errorf("unexpected state: %+v", state)
	}
	if state.Progress != 100 {
		t.Errorf("progress = %v, want 100", state.Progress)
	}
}
