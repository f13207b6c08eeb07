package chores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/aristath/chorewheel/internal/config"
)

func TestNotifyWithRetry_TransientThenSuccess(t *testing.T) {
	n := &recordingNotifier{name: "test", failures: 2}
	cb := NewCircuitBreakerRegistry().Get("test")

	if err := notifyWithRetry(context.Background(), n, Reminder{Title: "bins"}, cb, fastRetry()); err != nil {
		t.Fatalf("expected success after retries, got error: %v", err)
	}
	if n.calls != 3 {
		t.Errorf("expected 3 calls (2 failures + 1 success), got %d", n.calls)
	}
}

func TestNotifyWithRetry_CircuitOpens(t *testing.T) {
	n := &recordingNotifier{name: "down", failures: 1000}
	cb := NewCircuitBreakerRegistry().Get("down")

	// Five consecutive failures trip the breaker; later calls fail fast.
	var err error
	for i := 0; i < 7; i++ {
		err = notifyWithRetry(context.Background(), n, Reminder{Title: "bins"}, cb, fastRetry())
		if err == nil {
			t.Fatalf("call %d: expected error, got success", i+1)
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Errorf("expected open circuit, got %v", cb.State())
	}
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState once open, got %v", err)
	}
}

func TestNotifyWithRetry_ContextCancelledStopsRetry(t *testing.T) {
	n := &recordingNotifier{name: "slow", failures: 1000}
	cb := NewCircuitBreakerRegistry().Get("slow")
	retry := RetryConfig{
		InitialInterval:     50 * time.Millisecond,
		MaxInterval:         200 * time.Millisecond,
		MaxElapsedTime:      10 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := notifyWithRetry(ctx, n, Reminder{Title: "bins"}, cb, retry)
	if err == nil {
		t.Fatal("expected error due to context cancellation")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("notifyWithRetry took %v, context should stop retries", elapsed)
	}
}

func TestCircuitBreaker_CancellationNotCounted(t *testing.T) {
	cb := NewCircuitBreakerRegistry().Get("log")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 6; i++ {
		if err := notifyWithRetry(ctx, LogNotifier{}, Reminder{Title: "bins"}, cb, fastRetry()); err == nil {
			t.Errorf("call %d: expected error with cancelled context", i+1)
		}
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("cancellation must not trip the breaker, state %v", cb.State())
	}
}

func TestCircuitBreakerRegistry_PerChannel(t *testing.T) {
	registry := NewCircuitBreakerRegistry()

	a1 := registry.Get("email")
	a2 := registry.Get("email")
	b := registry.Get("push")

	if a1 != a2 {
		t.Error("expected same circuit breaker instance for 'email'")
	}
	if a1 == b {
		t.Error("expected different circuit breakers per channel")
	}
	if b.Name() != "push" {
		t.Errorf("expected circuit breaker name 'push', got %q", b.Name())
	}
}

func TestRetryConfigFrom(t *testing.T) {
	got := RetryConfigFrom(config.DefaultConfig().Retry)
	if got.InitialInterval != 500*time.Millisecond || got.MaxInterval != 10*time.Second ||
		got.MaxElapsedTime != 30*time.Second || got.Multiplier != 2 {
		t.Errorf("unexpected retry config: %+v", got)
	}
}
