package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pallidlabs/authgate/internal/auth/store"
)

// HousekeepingService periodically prunes dead ledger rows so the token
// table doesn't grow without bound. Live rows are never touched.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService builds the pruner. Zero interval defaults to one
// hour; zero retention defaults to 24 hours after revocation.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval, "retention", s.Retention)
}

// Stop blocks until any in-progress sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) sweep() {
	cutoff := time.Now().UTC().Add(-s.Retention)
	if err := s.Store.Tokens().DeleteRevokedBefore(context.Background(), cutoff); err != nil {
		s.Logger.Error("ledger pruning failed", "error", err)
		return
	}
	s.Logger.Debug("pruned dead ledger rows", "cutoff", cutoff)
}
