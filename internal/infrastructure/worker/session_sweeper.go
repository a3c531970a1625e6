package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionPruner deletes idle sessions and reports how many went
type SessionPruner interface {
	PruneIdle(ctx context.Context) (int, error)
}

// SessionSweeper prunes idle sessions on a fixed interval
type SessionSweeper struct {
	pruner   SessionPruner
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSessionSweeper creates a sweeper; a non-positive interval means hourly
func NewSessionSweeper(pruner SessionPruner, interval time.Duration, logger *zap.Logger) *SessionSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SessionSweeper{
		pruner:   pruner,
		interval: interval,
		logger:   logger,
	}
}

// Name returns the worker name for identification
func (s *SessionSweeper) Name() string {
	return "SessionSweeper"
}

// Start sweeps on every tick until Stop
func (s *SessionSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("session sweeper already running")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.isRunning = true

	go s.run(ctx, s.done)

	s.logger.Info("SessionSweeper started", zap.Duration("interval", s.interval))
	return nil
}

// Stop ends the loop and waits for a running sweep
func (s *SessionSweeper) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info("SessionSweeper stopped")
	return nil
}

func (s *SessionSweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SessionSweeper) sweep(ctx context.Context) {
	n, err := s.pruner.PruneIdle(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Session sweep failed", zap.Error(err))
		}
		return
	}
	if n > 0 {
		s.logger.Info("Session sweep completed", zap.Int("expired", n))
	}
}
