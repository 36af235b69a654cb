package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{
			name: "default config",
			config: Config{
				Level:       "info",
				Format:      "json",
				ServiceName: "test-service",
			},
		},
		{
			name: "debug level",
			config: Config{
				Level:       "debug",
				Format:      "json",
				ServiceName: "test-service",
			},
		},
		{
			name: "text format",
			config: Config{
				Level:       "info",
				Format:      "text",
				ServiceName: "test-service",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(tt.config)
			if log == nil {
				t.Fatal("expected logger to be non-nil")
			}
		})
	}
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer

	log := New(Config{
		Level:       "debug",
		Format:      "json",
		Output:      &buf,
		ServiceName: "test-service",
	})

	log.Info("test message", "key", "value")

	output := buf.String()
	if output == "" {
		t.Fatal("expected output to be non-empty")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(output), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}

	if entry["msg"] != "test message" {
		t.Errorf("expected msg='test message', got %v", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Errorf("expected key='value', got %v", entry["key"])
	}
	if entry["service"] != "test-service" {
		t.Errorf("expected service='test-service', got %v", entry["service"])
	}
}

func TestWithVideoID(t *testing.T) {
	var buf bytes.Buffer

	log := New(Config{Level: "debug", Format: "json", Output: &buf})
	log.WithVideoID("vid_123").Info("processing")

	if !strings.Contains(buf.String(), `"video_id":"vid_123"`) {
		t.Errorf("expected video_id in output, got: %s", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer

	log := New(Config{Level: "debug", Format: "json", Output: &buf})
	log.WithComponent("worker").Info("started")

	if !strings.Contains(buf.String(), `"component":"worker"`) {
		t.Errorf("expected component in output, got: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer

	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req_1")
	ctx = ContextWithVideoID(ctx, "vid_1")

	log.FromContext(ctx).Info("enriched")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req_1"`) {
		t.Errorf("expected request_id in output, got: %s", out)
	}
	if !strings.Contains(out, `"video_id":"vid_1"`) {
		t.Errorf("expected video_id in output, got: %s", out)
	}
}

func TestFromContextEmpty(t *testing.T) {
	var buf bytes.Buffer

	log := New(Config{Level: "debug", Format: "json", Output: &buf})
	log.FromContext(context.Background()).Info("plain")

	out := buf.String()
	if strings.Contains(out, "request_id") || strings.Contains(out, "video_id") {
		t.Errorf("expected no context fields, got: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	log := New(Config{Level: "warn", Format: "json", Output: &buf})

	log.Debug("should not appear")
	log.Info("should not appear either")
	log.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("expected debug/info to be filtered, got: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("expected warn to pass, got: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"WARN", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"garbage", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input).String()
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}
