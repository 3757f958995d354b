package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGuardRecoversPanic(t *testing.T) {
	err := Guard(func() error { panic("boom") })
	if err == nil || err.Error() != "panic: boom" {
		t.Fatalf("unexpected error: %v", err)
	}
	want := errors.New("plain")
	if err := Guard(func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected plain error passed through, got %v", err)
	}
}

func TestSleepHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("sleep ignored cancellation")
	}
	if err := Sleep(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep should return nil, got %v", err)
	}
}
