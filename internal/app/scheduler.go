package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionCompleter is the scheduler's view of the session service.
type SessionCompleter interface {
	CompleteElapsed(ctx context.Context) (int, error)
}

// Scheduler runs the background session completion.
type Scheduler struct {
	sessions SessionCompleter
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}
}

func NewScheduler(sessions SessionCompleter, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		sessions: sessions,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))
	go s.runCompletionTask(ctx)
}

// Stop signals the task and waits for it to return.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
	<-s.done
}

func (s *Scheduler) runCompletionTask(ctx context.Context) {
	defer close(s.done)

	// first pass right at startup
	s.completeSessions(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.completeSessions(ctx)
		case <-s.stopChan:
			s.logger.Info("Session completion task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Session completion task cancelled")
			return
		}
	}
}

func (s *Scheduler) completeSessions(ctx context.Context) {
	n, err := s.sessions.CompleteElapsed(ctx)
	if err != nil {
		s.logger.Error("Failed to complete elapsed sessions", zap.Error(err))
		return
	}
	s.logger.Debug("Session completion pass finished", zap.Int("completed", n))
}
