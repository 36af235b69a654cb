package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "invalid input")

	if err.Code != CodeValidation {
		t.Errorf("expected code=%s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "invalid input" {
		t.Errorf("expected message='invalid input', got %s", err.Message)
	}
	if len(err.Stack) == 0 {
		t.Error("expected stack trace to be captured")
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "simple error",
			err:      New(CodeValidation, "invalid"),
			contains: []string{"VALIDATION_ERROR", "invalid"},
		},
		{
			name: "error with op",
			err: &Error{
				Code:    CodeInternal,
				Message: "db failed",
				Op:      "video.create",
			},
			contains: []string{"video.create", "INTERNAL_ERROR", "db failed"},
		},
		{
			name: "error with underlying",
			err: &Error{
				Code:    CodeInternal,
				Message: "wrapper",
				Err:     fmt.Errorf("underlying error"),
			},
			contains: []string{"wrapper", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			str := tt.err.Error()
			for _, c := range tt.contains {
				if !strings.Contains(str, c) {
					t.Errorf("expected error string to contain %q, got: %s", c, str)
				}
			}
		})
	}
}

func TestWrap(t *testing.T) {
	original := fmt.Errorf("original error")
	wrapped := Wrap(original, "gateway.submit", "submit failed")

	if wrapped == nil {
		t.Fatal("expected wrapped error to be non-nil")
	}
	if wrapped.Code != CodeInternal {
		t.Errorf("expected code=%s, got %s", CodeInternal, wrapped.Code)
	}
	if wrapped.Op != "gateway.submit" {
		t.Errorf("expected op='gateway.submit', got %s", wrapped.Op)
	}
	if errors.Unwrap(wrapped) != original {
		t.Error("Unwrap should return original error")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "op", "message") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapPreservesCode(t *testing.T) {
	original := New(CodeUnreachable, "audio unreachable")
	wrapped := Wrap(original, "processor.validate", "validation failed")

	if wrapped.Code != CodeUnreachable {
		t.Errorf("expected code to be preserved as %s, got %s", CodeUnreachable, wrapped.Code)
	}
}

func TestWrapWithCode(t *testing.T) {
	original := fmt.Errorf("connect timeout")
	wrapped := WrapWithCode(original, CodeTimeout, "gateway.poll", "poll timed out")

	if wrapped.Code != CodeTimeout {
		t.Errorf("expected code=%s, got %s", CodeTimeout, wrapped.Code)
	}
}

func TestUnreachable(t *testing.T) {
	err := Unreachable("https://cdn.example.com/a.mp3", "audio", 1)

	if err.Code != CodeUnreachable {
		t.Errorf("expected code=%s, got %s", CodeUnreachable, err.Code)
	}
	if err.Fields["role"] != "audio" {
		t.Errorf("expected role field 'audio', got %v", err.Fields["role"])
	}
	if err.Fields["segment_index"] != 1 {
		t.Errorf("expected segment_index field 1, got %v", err.Fields["segment_index"])
	}
	if !strings.Contains(err.Error(), "https://cdn.example.com/a.mp3") {
		t.Errorf("expected URL in message, got: %s", err.Error())
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("segments[0].duration", "must be positive")

	if err.Fields["field"] != "segments[0].duration" {
		t.Errorf("expected field path in fields, got %v", err.Fields["field"])
	}
	if !IsValidation(err) {
		t.Error("expected IsValidation to be true")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, 400},
		{CodeUnreachable, 400},
		{CodeNotFound, 404},
		{CodeConflict, 409},
		{CodeTimeout, 504},
		{CodeUnavailable, 503},
		{CodeRenderFailed, 502},
		{CodePublishFailed, 502},
		{CodeInternal, 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "x")
			if got := err.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(fmt.Errorf("plain")); got != CodeInternal {
		t.Errorf("expected plain errors to map to %s, got %s", CodeInternal, got)
	}

	wrapped := fmt.Errorf("outer: %w", New(CodeNotFound, "gone"))
	if got := GetCode(wrapped); got != CodeNotFound {
		t.Errorf("expected code through wrapping, got %s", got)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	a := New(CodeTimeout, "first")
	b := New(CodeTimeout, "second")

	if !errors.Is(a, b) {
		t.Error("expected errors with same code to match")
	}
}
