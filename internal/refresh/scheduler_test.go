package refresh

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type countingService struct {
	calls atomic.Int64
}

func (c *countingService) RecomputeAndBroadcast() {
	c.calls.Add(1)
}

func TestTickFiresAtConfiguredHour(t *testing.T) {
	svc := &countingService{}
	s := NewScheduler(svc, 7, slog.Default())
	s.now = func() time.Time {
		return time.Date(2026, 3, 14, 7, 30, 0, 0, time.UTC)
	}

	s.tick()

	if got := svc.calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestTickSkipsOtherHours(t *testing.T) {
	svc := &countingService{}
	s := NewScheduler(svc, 7, slog.Default())
	s.now = func() time.Time {
		return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	}

	s.tick()

	if got := svc.calls.Load(); got != 0 {
		t.Fatalf("calls = %d, want 0", got)
	}
}

func TestTickFiresOncePerDay(t *testing.T) {
	svc := &countingService{}
	s := NewScheduler(svc, 7, slog.Default())

	// Several ticks within the refresh hour on the same day.
	for minute := 0; minute < 3; minute++ {
		m := minute
		s.now = func() time.Time {
			return time.Date(2026, 3, 14, 7, m, 0, 0, time.UTC)
		}
		s.tick()
	}
	if got := svc.calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1 for same day", got)
	}

	// Next day fires again.
	s.now = func() time.Time {
		return time.Date(2026, 3, 15, 7, 0, 0, 0, time.UTC)
	}
	s.tick()
	if got := svc.calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2 after day rollover", got)
	}
}

func TestInvalidHourFallsBack(t *testing.T) {
	s := NewScheduler(&countingService{}, 99, slog.Default())
	if s.hour != 7 {
		t.Errorf("hour = %d, want 7", s.hour)
	}
	s = NewScheduler(&countingService{}, -1, slog.Default())
	if s.hour != 7 {
		t.Errorf("hour = %d, want 7", s.hour)
	}
}

func TestStartStop(t *testing.T) {
	svc := &countingService{}
	s := NewScheduler(svc, 7, slog.Default())
	s.interval = 5 * time.Millisecond
	s.now = func() time.Time {
		return time.Date(2026, 3, 14, 7, 0, 0, 0, time.UTC)
	}

	s.Start(context.Background())
	time.Sleep(25 * time.Millisecond)
	s.Stop()

	if got := svc.calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}

	// Stop again is safe.
	s.Stop()
}
