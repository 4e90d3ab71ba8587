package core

// sweeper.go expires idle sessions.
//
// Sessions live only in memory. A background sweeper drops any session whose
// last update is older than the configured TTL. It is context-aware and stops
// on shutdown.

import (
	"context"
	"log/slog"
	"time"
)

// StartSessionSweeper runs until ctx is cancelled, sweeping every
// SweepInterval.
func (s *Service) StartSessionSweeper(ctx context.Context) {
	slog.Info("session sweeper started",
		"ttl", s.cfg.SessionTTL.String(),
		"interval", s.cfg.SweepInterval.String(),
	)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if n := s.SweepExpired(); n > 0 {
				slog.Info("expired sessions removed", "count", n, "remaining", s.SessionCount())
			}
		}
	}
}

// SweepExpired removes sessions idle for longer than the TTL and returns
// how many were removed.
func (s *Service) SweepExpired() int {
	cutoff := s.now().Add(-s.cfg.SessionTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
