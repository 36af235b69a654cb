package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reelforge/internal/pkg/logger"
)

func newTestLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Config{
		Level:  "debug",
		Format: "json",
		Output: buf,
	})
}

func TestRequestIDGenerated(t *testing.T) {
	var captured string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v, ok := r.Context().Value(logger.RequestIDKey).(string); ok {
			captured = v
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/video/abc/status", nil))

	if captured == "" {
		t.Fatal("expected request ID in context")
	}
	if rec.Header().Get(RequestIDHeader) != captured {
		t.Errorf("expected response header to carry request ID %q, got %q",
			captured, rec.Header().Get(RequestIDHeader))
	}
}

func TestRequestIDPropagated(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "req_incoming")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get(RequestIDHeader) != "req_incoming" {
		t.Errorf("expected incoming request ID to be reused, got %q",
			rec.Header().Get(RequestIDHeader))
	}
}

func TestLoggingCapturesStatus(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf)

	h := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/video/missing", nil))

	out := buf.String()
	if !strings.Contains(out, `"status":404`) {
		t.Errorf("expected status 404 in log output, got: %s", out)
	}
	if !strings.Contains(out, "request completed") {
		t.Errorf("expected completion log line, got: %s", out)
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf)

	h := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Errorf("expected panic log entry, got: %s", buf.String())
	}
	if !strings.Contains(rec.Body.String(), "INTERNAL_ERROR") {
		t.Errorf("expected error envelope body, got: %s", rec.Body.String())
	}
}

func TestResponseWriterSize(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf)

	h := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if !strings.Contains(buf.String(), `"size":5`) {
		t.Errorf("expected response size in log output, got: %s", buf.String())
	}
}
