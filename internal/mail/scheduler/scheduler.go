package scheduler

import (
	"context"
	"sync"
	"time"

	"crm-backend/internal/mail/usecase"
	"crm-backend/pkg/apperrors"

	"go.uber.org/zap"
)

// Syncer pulls new inbox messages into the mail log
type Syncer interface {
	Sync(ctx context.Context) (*usecase.SyncResult, error)
}

// SyncScheduler runs a mail sync on a fixed interval
type SyncScheduler struct {
	syncer   Syncer
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewSyncScheduler(syncer Syncer, interval time.Duration, logger *zap.Logger) *SyncScheduler {
	return &SyncScheduler{
		syncer:   syncer,
		interval: interval,
		timeout:  2 * time.Minute,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the scheduler loop. A non-positive interval disables it.
func (s *SyncScheduler) Start() {
	if s.interval <= 0 {
		s.logger.Info("Periodic mail sync disabled")
		close(s.done)
		return
	}

	s.logger.Info("Starting periodic mail sync", zap.Duration("interval", s.interval))

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stopChan:
				s.logger.Info("Periodic mail sync stopped")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for a running sync to finish
func (s *SyncScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *SyncScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.syncer.Sync(ctx)
	switch {
	case err == nil:
		if len(result.Stored) > 0 {
			s.logger.Info("Periodic mail sync stored messages", zap.Int("stored", len(result.Stored)))
		}
	case apperrors.Is(err, apperrors.CodeGmailNotConnected), apperrors.Is(err, apperrors.CodeGmailNotConfigured):
		s.logger.Debug("Periodic mail sync skipped", zap.Error(err))
	default:
		s.logger.Error("Periodic mail sync failed", zap.Error(err))
	}
}
