package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Recomputer is the slice of the leaderboard service the scheduler needs.
type Recomputer interface {
	RecomputeAndBroadcast()
}

// Scheduler fires a leaderboard recompute once per day at a fixed wall-clock
// hour, so clients that missed mutation broadcasts converge on a fresh
// snapshot. Mutation-driven broadcasts remain the primary refresh path.
type Scheduler struct {
	mu       sync.RWMutex
	service  Recomputer
	hour     int
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	lastDay  string
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a refresh scheduler firing at the given UTC hour.
func NewScheduler(service Recomputer, hour int, logger *slog.Logger) *Scheduler {
	if hour < 0 || hour > 23 {
		hour = 7
	}
	return &Scheduler{
		service:  service,
		hour:     hour,
		interval: 60 * time.Second,
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick() {
	now := s.now().UTC()
	if now.Hour() != s.hour {
		return
	}

	day := now.Format("2006-01-02")
	s.mu.Lock()
	if s.lastDay == day {
		s.mu.Unlock()
		return
	}
	s.lastDay = day
	s.mu.Unlock()

	s.logger.Info("daily leaderboard refresh", "day", day)
	s.service.RecomputeAndBroadcast()
}
