package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/domain/entity"
	"github.com/garyjia/grant-portal/internal/domain/event"
)

// RecordSource resolves a cached record for a session
type RecordSource interface {
	Record(ctx context.Context, sessionID, key string) (entity.Record, string, error)
}

// ExportService renders single records into documents
type ExportService interface {
	// Export captures the record now and returns the job rendering it
	Export(ctx context.Context, sessionID, key string, format port.ExportFormat) (port.ExportJob, error)

	// ExportAndWait exports and blocks until the document is stored, the
	// timeout expires or ctx is done
	ExportAndWait(ctx context.Context, sessionID, key string, format port.ExportFormat) (*port.ExportResult, error)

	// Discard deletes a document that has been delivered
	Discard(ctx context.Context, res *port.ExportResult) error
}

type exportServiceImpl struct {
	records RecordSource
	queue   port.ExportQueue
	events  AsyncPublisher
	timeout time.Duration
	logger  Logger
}

// NewExportService creates a new ExportService
func NewExportService(records RecordSource, queue port.ExportQueue, events AsyncPublisher, timeout time.Duration, logger Logger) ExportService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &exportServiceImpl{
		records: records,
		queue:   queue,
		events:  events,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *exportServiceImpl) Export(ctx context.Context, sessionID, key string, format port.ExportFormat) (port.ExportJob, error) {
	job, _, err := s.submit(ctx, sessionID, key, format)
	return job, err
}

func (s *exportServiceImpl) submit(ctx context.Context, sessionID, key string, format port.ExportFormat) (port.ExportJob, entity.Record, error) {
	rec, site, err := s.records.Record(ctx, sessionID, key)
	if err != nil {
		return nil, rec, err
	}

	job, err := s.queue.Submit(ctx, port.ExportRequest{Site: site, Record: rec, Format: format})
	if err != nil {
		s.logger.Error("Failed to submit export", "letter_no", rec.LetterNo, "format", format, "error", err)
		return nil, rec, fmt.Errorf("failed to submit export: %w", err)
	}
	return job, rec, nil
}

func (s *exportServiceImpl) ExportAndWait(ctx context.Context, sessionID, key string, format port.ExportFormat) (*port.ExportResult, error) {
	job, rec, err := s.submit(ctx, sessionID, key, format)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case <-job.Done():
	case <-timer.C:
		return nil, fmt.Errorf("export did not finish within %s", s.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	res, err := job.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to export record: %w", err)
	}

	// journaling the export must not hold up the download
	s.events.DispatchAsync(ctx, event.NewEvent(event.TypeRecordExported, sessionID, rec.LetterNo, map[string]interface{}{
		event.KeyPath: res.Path,
	}))
	return res, nil
}

func (s *exportServiceImpl) Discard(ctx context.Context, res *port.ExportResult) error {
	if err := s.queue.Discard(ctx, res); err != nil {
		s.logger.Error("Failed to discard export", "path", res.Path, "error", err)
		return err
	}
	return nil
}
