package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/domain/entity"
	"github.com/garyjia/grant-portal/internal/infrastructure/persistence/sqlite"
)

// JournalRepository implements port.JournalRepository
type JournalRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewJournalRepository creates a new journal repository
func NewJournalRepository(db *sqlite.DB, logger *zap.Logger) *JournalRepository {
	return &JournalRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an entry
func (r *JournalRepository) Create(ctx context.Context, e *entity.JournalEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO write_journal (session_id, letter_no, event_type, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		e.SessionID, e.LetterNo, e.EventType, e.Outcome, e.Detail, e.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create journal entry", zap.Error(err))
		return fmt.Errorf("failed to create journal entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	e.ID = id
	return nil
}

// ListBySession returns the session's newest entries first
func (r *JournalRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*entity.JournalEntry, error) {
	query := `
		SELECT id, session_id, letter_no, event_type, outcome, detail, created_at
		FROM write_journal
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	return r.list(ctx, query, sessionID, limit)
}

// ListFailures returns the session's newest failed entries first
func (r *JournalRepository) ListFailures(ctx context.Context, sessionID string, limit int) ([]*entity.JournalEntry, error) {
	query := `
		SELECT id, session_id, letter_no, event_type, outcome, detail, created_at
		FROM write_journal
		WHERE session_id = ? AND outcome = ?
		ORDER BY id DESC
		LIMIT ?
	`
	return r.list(ctx, query, sessionID, entity.OutcomeFailed, limit)
}

func (r *JournalRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.JournalEntry, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list journal entries", zap.Error(err))
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.JournalEntry
	for rows.Next() {
		var e entity.JournalEntry
		if err := rows.Scan(
			&e.ID,
			&e.SessionID,
			&e.LetterNo,
			&e.EventType,
			&e.Outcome,
			&e.Detail,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

var _ port.JournalRepository = (*JournalRepository)(nil)
