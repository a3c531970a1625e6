package worker

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/infrastructure/export"
	"github.com/garyjia/grant-portal/pkg/utils"
)

// ExportWorkerConfig holds configuration for the export pool
type ExportWorkerConfig struct {
	Workers   int
	QueueSize int
}

// DefaultExportWorkerConfig returns default configuration
func DefaultExportWorkerConfig() ExportWorkerConfig {
	return ExportWorkerConfig{Workers: 2, QueueSize: 16}
}

// exportJob implements port.ExportJob
type exportJob struct {
	id   string
	ctx  context.Context
	req  port.ExportRequest
	done chan struct{}

	result *port.ExportResult
	err    error
}

func (j *exportJob) Done() <-chan struct{} { return j.done }

// Result returns the outcome; it must only be read after Done is closed
func (j *exportJob) Result() (*port.ExportResult, error) {
	<-j.done
	return j.result, j.err
}

func (j *exportJob) finish(res *port.ExportResult, err error) {
	j.result, j.err = res, err
	close(j.done)
}

// ExportWorker renders records on a fixed pool of goroutines and stores the
// documents through FileStorage
type ExportWorker struct {
	config    ExportWorkerConfig
	renderers export.Renderers
	storage   port.FileStorage
	logger    *zap.Logger

	mu        sync.Mutex
	isRunning bool
	queue     chan *exportJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewExportWorker creates a new export worker
func NewExportWorker(config ExportWorkerConfig, renderers export.Renderers, storage port.FileStorage, logger *zap.Logger) *ExportWorker {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}
	return &ExportWorker{
		config:    config,
		renderers: renderers,
		storage:   storage,
		logger:    logger,
	}
}

// Name returns the worker name for identification
func (w *ExportWorker) Name() string {
	return "ExportWorker"
}

// Pending returns the number of exports waiting for a goroutine
func (w *ExportWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.isRunning {
		return 0
	}
	return len(w.queue)
}

// Start launches the pool
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("export worker already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.queue = make(chan *exportJob, w.config.QueueSize)
	w.isRunning = true

	for i := 0; i < w.config.Workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, w.queue)
	}

	w.logger.Info("ExportWorker started",
		zap.Int("workers", w.config.Workers),
		zap.Int("queue_size", w.config.QueueSize))
	return nil
}

// Stop waits for running jobs and fails the queued ones
func (w *ExportWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	queue := w.queue
	close(queue)
	w.cancel()
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("ExportWorker stopped")
	return nil
}

// Submit enqueues req without blocking
func (w *ExportWorker) Submit(ctx context.Context, req port.ExportRequest) (port.ExportJob, error) {
	if _, err := w.renderers.Lookup(req.Format); err != nil {
		return nil, err
	}

	job := &exportJob{
		id:   uuid.NewString(),
		ctx:  context.WithoutCancel(ctx),
		req:  req,
		done: make(chan struct{}),
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isRunning {
		return nil, port.ErrExportStopped
	}
	select {
	case w.queue <- job:
		return job, nil
	default:
		return nil, port.ErrExportQueueFull
	}
}

func (w *ExportWorker) run(ctx context.Context, queue <-chan *exportJob) {
	defer w.wg.Done()
	for job := range queue {
		if ctx.Err() != nil {
			job.finish(nil, port.ErrExportStopped)
			continue
		}
		job.finish(w.process(job))
	}
}

func (w *ExportWorker) process(job *exportJob) (*port.ExportResult, error) {
	start := time.Now()
	req := job.req

	renderer, err := w.renderers.Lookup(req.Format)
	if err != nil {
		return nil, err
	}

	content, err := renderer.Render(req.Site, req.Record)
	if err != nil {
		w.logger.Error("Failed to render export",
			zap.String("letter_no", req.Record.LetterNo),
			zap.String("format", string(req.Format)),
			zap.Error(err))
		return nil, err
	}

	// every job gets its own file; the letter number only names the download
	base := utils.SanitizeFileName(req.Record.LetterNo)
	fileName := base + renderer.Extension()
	relPath := path.Join(utils.SanitizeFileName(req.Site), base+"-"+job.id+renderer.Extension())
	if err := w.storage.Save(job.ctx, relPath, content); err != nil {
		return nil, fmt.Errorf("failed to store export: %w", err)
	}

	w.logger.Info("Export rendered",
		zap.String("job_id", job.id),
		zap.String("letter_no", req.Record.LetterNo),
		zap.String("path", relPath),
		zap.Int("size", len(content)),
		zap.Duration("elapsed", time.Since(start)))

	return &port.ExportResult{
		Path:        relPath,
		FullPath:    w.storage.GetFullPath(relPath),
		FileName:    fileName,
		ContentType: renderer.ContentType(),
		Size:        len(content),
	}, nil
}

// Discard removes a stored document once it has been delivered
func (w *ExportWorker) Discard(ctx context.Context, res *port.ExportResult) error {
	if res == nil || res.Path == "" {
		return nil
	}
	if err := w.storage.Delete(ctx, res.Path); err != nil {
		return fmt.Errorf("failed to discard export: %w", err)
	}
	return nil
}

var _ port.ExportQueue = (*ExportWorker)(nil)
