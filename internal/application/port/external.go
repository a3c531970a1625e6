package port

import (
	"context"
	"fmt"

	"github.com/garyjia/grant-portal/internal/domain/entity"
)

// RecordAPI defines the remote Record API operations
type RecordAPI interface {
	// Login exchanges credentials for an opaque token
	Login(ctx context.Context, username, password string) (string, error)

	// ListRecords fetches every record of a site in server order
	ListRecords(ctx context.Context, token, site string) ([]entity.Record, error)

	// UpdateStatus sends {status} for the record with letterNo
	UpdateStatus(ctx context.Context, token, letterNo, status string) error

	// UpdateComments sends {comments, commentsGivenBy} for the record with letterNo
	UpdateComments(ctx context.Context, token, letterNo, comments, commentsGivenBy string) error

	// CreateRecord posts a new record for site
	CreateRecord(ctx context.Context, token, site string, draft entity.RecordDraft) error
}

// APIError is a non-2xx response from the Record API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("record api returned status %d", e.Status)
	}
	return fmt.Sprintf("record api returned status %d: %s", e.Status, e.Message)
}
