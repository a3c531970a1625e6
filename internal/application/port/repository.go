package port

import (
	"context"
	"time"

	"github.com/garyjia/grant-portal/internal/domain/entity"
)

// SessionRepository defines persistence operations for portal sessions
type SessionRepository interface {
	// Get returns nil, nil when no session has the id
	Get(ctx context.Context, id string) (*entity.Session, error)

	// Save inserts the session or replaces all of its fields
	Save(ctx context.Context, session *entity.Session) error

	UpdateToken(ctx context.Context, id, token, username string) error
	UpdateSite(ctx context.Context, id, site string) error

	// Touch marks the session as used now
	Touch(ctx context.Context, id string) error

	// DeleteIdle removes sessions last used before the cutoff and returns
	// their ids
	DeleteIdle(ctx context.Context, before time.Time) ([]string, error)
}

// JournalRepository defines persistence operations for the write journal
type JournalRepository interface {
	Create(ctx context.Context, entry *entity.JournalEntry) error

	// ListBySession returns the newest entries first
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*entity.JournalEntry, error)

	// ListFailures returns the session's newest failed entries first
	ListFailures(ctx context.Context, sessionID string, limit int) ([]*entity.JournalEntry, error)
}

// TransactionManager defines transaction operations
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
