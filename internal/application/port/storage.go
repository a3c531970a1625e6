package port

import (
	"context"
	"errors"

	"github.com/garyjia/grant-portal/internal/domain/entity"
)

// FileStorage defines file storage operations
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte) error
	Delete(ctx context.Context, path string) error
	GetFullPath(relativePath string) string
}

// ExportFormat selects the document type of an export
type ExportFormat string

const (
	ExportHTML ExportFormat = "html"
	ExportXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts "html" or "xlsx"; empty means html
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case "", ExportHTML:
		return ExportHTML, nil
	case ExportXLSX:
		return ExportXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrExportQueueFull   = errors.New("export queue is full")
	ErrExportStopped     = errors.New("export workers are not running")
)

// ExportRequest captures one record for rendering
type ExportRequest struct {
	Site   string
	Record entity.Record
	Format ExportFormat
}

// ExportResult describes a rendered and stored document. Path is unique to
// the job; FileName is the name offered for download.
type ExportResult struct {
	Path        string // relative to the storage base
	FullPath    string
	FileName    string
	ContentType string
	Size        int
}

// ExportJob is the future of a submitted export. Done is closed once the
// document has been stored or the job has failed.
type ExportJob interface {
	Done() <-chan struct{}
	Result() (*ExportResult, error)
}

// ExportQueue accepts export requests for background rendering
type ExportQueue interface {
	Submit(ctx context.Context, req ExportRequest) (ExportJob, error)

	// Discard deletes a delivered document; a missing file is not an error
	Discard(ctx context.Context, res *ExportResult) error
}
