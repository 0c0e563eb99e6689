package limiter

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRate_Paces(t *testing.T) {
	t.Parallel()

	l := NewRate(100, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 6; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	// first token is immediate, the next five take ~10ms each
	if el := time.Since(start); el < 40*time.Millisecond {
		t.Fatalf("limiter too fast: %v", el)
	}
}

func TestNewRate_NonPositiveIsUnlimited(t *testing.T) {
	t.Parallel()

	l := NewRate(0, 0)
	start := time.Now()
	for i := 0; i < 1000; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if el := time.Since(start); el > time.Second {
		t.Fatalf("unlimited limiter blocked: %v", el)
	}
}

func TestRate_WaitHonoursCancel(t *testing.T) {
	t.Parallel()

	l := NewRate(0.001, 1)
	_ = l.Wait(context.Background()) // drain burst

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatalf("want error when next token is far away")
	}
}

func TestUnlimited(t *testing.T) {
	t.Parallel()

	if err := Unlimited.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Unlimited.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
