// stale_leads.go implements the StaleLeadSweeper background job, which
// periodically closes leads that have seen no activity for a configured
// window. The job runs without an authenticated actor, so the audit trail
// records its writes with a NULL actor_id.
package jobs

import (
	"context"
	"log/slog"
	"time"
)

// LeadCloser is the repository surface the sweeper needs.
type LeadCloser interface {
	CloseStale(ctx context.Context, cutoff time.Time) (int, error)
}

// StaleLeadSweeper periodically marks leads untouched for longer than
// staleAfter as lost.
type StaleLeadSweeper struct {
	leads      LeadCloser
	interval   time.Duration
	staleAfter time.Duration
	stopChan   chan struct{}
}

// NewStaleLeadSweeper creates a sweeper. Non-positive durations fall back to
// a daily sweep and a 90-day staleness window.
func NewStaleLeadSweeper(leads LeadCloser, interval, staleAfter time.Duration) *StaleLeadSweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if staleAfter <= 0 {
		staleAfter = 90 * 24 * time.Hour
	}
	return &StaleLeadSweeper{
		leads:      leads,
		interval:   interval,
		staleAfter: staleAfter,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the background sweep loop. It runs an initial sweep
// immediately, then repeats on the configured interval. The loop exits when
// ctx is cancelled or Stop() is called.
func (s *StaleLeadSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("stale lead sweeper started", "interval", s.interval, "stale_after", s.staleAfter)

	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			slog.Info("stale lead sweeper stopped")
			return
		case <-ctx.Done():
			slog.Info("stale lead sweeper context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (s *StaleLeadSweeper) Stop() {
	close(s.stopChan)
}

func (s *StaleLeadSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.staleAfter)

	closed, err := s.leads.CloseStale(ctx, cutoff)
	if err != nil {
		slog.Error("stale lead sweep failed", "error", err)
		return
	}
	if closed > 0 {
		slog.Info("stale lead sweep closed leads", "count", closed, "cutoff", cutoff)
	}
}
