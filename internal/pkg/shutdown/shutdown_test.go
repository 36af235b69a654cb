package shutdown

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"reelforge/internal/pkg/logger"
)

func newTestLogger() *logger.Logger {
	var buf bytes.Buffer
	return logger.New(logger.Config{
		Level:  "debug",
		Format: "json",
		Output: &buf,
	})
}

func TestNewManager(t *testing.T) {
	log := newTestLogger()

	t.Run("with default timeout", func(t *testing.T) {
		mgr := NewManager(log, 0)
		if mgr == nil {
			t.Fatal("expected manager to be non-nil")
		}
		if mgr.timeout != 30*time.Second {
			t.Errorf("expected default timeout 30s, got %s", mgr.timeout)
		}
	})

	t.Run("with custom timeout", func(t *testing.T) {
		mgr := NewManager(log, 10*time.Second)
		if mgr.timeout != 10*time.Second {
			t.Errorf("expected timeout 10s, got %s", mgr.timeout)
		}
	})
}

func TestRegister(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, 5*time.Second)

	mgr.Register("test", func(ctx context.Context) error {
		return nil
	})

	if len(mgr.handlers) != 1 {
		t.Errorf("expected 1 handler, got %d", len(mgr.handlers))
	}
	if mgr.handlers[0].Name != "test" {
		t.Errorf("expected handler name 'test', got %s", mgr.handlers[0].Name)
	}
}

func TestShutdownRunsAllHandlers(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, 5*time.Second)

	var count atomic.Int32
	for i := 0; i < 3; i++ {
		mgr.Register(fmt.Sprintf("h%d", i), func(ctx context.Context) error {
			count.Add(1)
			return nil
		})
	}

	mgr.Shutdown()

	if count.Load() != 3 {
		t.Errorf("expected 3 handlers to run, got %d", count.Load())
	}

	select {
	case <-mgr.Done():
	default:
		t.Error("expected Done channel to be closed after shutdown")
	}
}

func TestShutdownHandlerError(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, 5*time.Second)

	var ran atomic.Bool
	mgr.Register("failing", func(ctx context.Context) error {
		return fmt.Errorf("cleanup failed")
	})
	mgr.Register("ok", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	// A failing handler must not prevent others from running.
	mgr.Shutdown()

	if !ran.Load() {
		t.Error("expected remaining handler to run despite failure")
	}
}

func TestShutdownTimeout(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, 100*time.Millisecond)

	mgr.Register("slow", func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return nil
	})

	start := time.Now()
	mgr.Shutdown()
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Errorf("expected shutdown to give up after timeout, took %s", elapsed)
	}
}

func TestContextCanceledOnShutdown(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, time.Second)

	ctx := mgr.Context()
	mgr.Shutdown()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("expected context to be canceled after shutdown")
	}
}
