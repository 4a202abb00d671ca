package wsgateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically closes connections that have been idle for longer
// than the idle timeout.
type Sweeper struct {
	gateway     *Gateway
	schedule    string
	idleTimeout time.Duration
	cron        *cron.Cron
	mu          sync.Mutex
	logger      *slog.Logger
	running     bool
}

// NewSweeper creates a sweeper. schedule is a cron expression such as
// "@every 1m".
func NewSweeper(gateway *Gateway, schedule string, idleTimeout time.Duration) *Sweeper {
	return &Sweeper{
		gateway:     gateway,
		schedule:    schedule,
		idleTimeout: idleTimeout,
		cron:        cron.New(),
		logger:      slog.Default().With("component", "wsgateway.sweeper"),
	}
}

// Start schedules sweeping and stops it when ctx is done. An empty
// schedule or a non-positive idle timeout disables the sweeper.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" || s.idleTimeout <= 0 {
		s.logger.Info("idle sweeping disabled")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.Sweep(time.Now()) }); err != nil {
		return fmt.Errorf("failed to schedule sweeping: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("idle sweeper started", "schedule", s.schedule, "idle_timeout", s.idleTimeout)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Sweep closes every connection idle since before now minus the idle
// timeout and returns how many were closed.
func (s *Sweeper) Sweep(now time.Time) int {
	closed := 0
	for _, c := range s.gateway.Registry().Snapshot() {
		if now.Sub(c.LastActiveAt()) < s.idleTimeout {
			continue
		}
		if s.gateway.Disconnect(c.ID, "idle timeout") {
			closed++
		}
	}
	if closed > 0 {
		s.logger.Info("closed idle connections", "count", closed)
	}
	return closed
}

// Stop stops the scheduler and waits for a running sweep.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("idle sweeper stopped")
	}
}
