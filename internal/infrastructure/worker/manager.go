package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker defines the interface for background workers
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// queueReporter is implemented by workers that buffer jobs
type queueReporter interface {
	Pending() int
}

// WorkerManager starts registered workers together and stops them in
// reverse registration order
type WorkerManager struct {
	workers []Worker
	logger  *zap.Logger

	mu        sync.RWMutex
	isRunning bool
	cancel    context.CancelFunc
}

// NewWorkerManager creates a new worker manager
func NewWorkerManager(logger *zap.Logger) *WorkerManager {
	return &WorkerManager{logger: logger}
}

// Register adds a worker to be managed
func (m *WorkerManager) Register(worker Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, worker)
	m.logger.Info("Worker registered",
		zap.String("worker_name", worker.Name()),
		zap.Int("total_workers", len(m.workers)))
}

// StartAll starts every registered worker. If one fails, the ones already
// started are stopped again and the error is returned.
func (m *WorkerManager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("workers already running")
	}

	ctx, m.cancel = context.WithCancel(ctx)
	for i, w := range m.workers {
		if err := w.Start(ctx); err != nil {
			m.logger.Error("Failed to start worker",
				zap.String("worker_name", w.Name()),
				zap.Error(err))
			m.stopRange(i - 1)
			m.cancel()
			return fmt.Errorf("failed to start worker %s: %w", w.Name(), err)
		}
		m.logger.Info("Worker started", zap.String("worker_name", w.Name()))
	}

	m.isRunning = true
	return nil
}

// StopAll gracefully stops all workers
func (m *WorkerManager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return nil
	}
	m.isRunning = false

	err := m.stopRange(len(m.workers) - 1)
	m.cancel()
	if err != nil {
		return err
	}
	m.logger.Info("All workers stopped")
	return nil
}

// stopRange stops workers[last..0]
func (m *WorkerManager) stopRange(last int) error {
	var errs []error
	for i := last; i >= 0; i-- {
		w := m.workers[i]
		if err := w.Stop(); err != nil {
			m.logger.Error("Failed to stop worker",
				zap.String("worker_name", w.Name()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", w.Name(), err))
			continue
		}
		m.logger.Info("Worker stopped", zap.String("worker_name", w.Name()))
	}
	return errors.Join(errs...)
}

// Report describes each registered worker for the health endpoint, in
// registration order
func (m *WorkerManager) Report() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := "stopped"
	if m.isRunning {
		state = "running"
	}
	lines := make([]string, 0, len(m.workers))
	for _, w := range m.workers {
		line := fmt.Sprintf("%s: %s", w.Name(), state)
		if q, ok := w.(queueReporter); ok {
			line += fmt.Sprintf(", %d queued", q.Pending())
		}
		lines = append(lines, line)
	}
	return lines
}

// GetWorkerCount returns the number of registered workers
func (m *WorkerManager) GetWorkerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}

// IsRunning returns whether workers are running
func (m *WorkerManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}
