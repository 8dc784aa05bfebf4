package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store"
)

// HousekeepingService periodically purges expired sessions and, when a
// retention window is set, old usage logs.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration // zero keeps usage logs forever

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:     store,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the cleanup loop in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "log_retention", s.Retention)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Cleanup(context.Background(), time.Now())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background(), time.Now())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup performs one pass. Each deletion is independent, a failure in one
// does not stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context, now time.Time) {
	s.Logger.Debug("starting housekeeping cleanup")

	sessions, err := s.Store.Sessions().DeleteExpiredSessions(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	}

	var logs int64
	if s.Retention > 0 {
		logs, err = s.Store.UsageLogs().DeleteUsageLogsBefore(ctx, now.Add(-s.Retention))
		if err != nil {
			s.Logger.Error("failed to truncate usage logs", "error", err)
		}
	}

	s.Logger.Info("housekeeping cleanup completed",
		"expired_sessions", sessions,
		"usage_logs", logs,
	)
}
