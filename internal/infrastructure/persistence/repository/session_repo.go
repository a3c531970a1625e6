package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/domain/entity"
	"github.com/garyjia/grant-portal/internal/infrastructure/persistence/sqlite"
)

// SessionRepository implements port.SessionRepository
type SessionRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sqlite.DB, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Get retrieves a session by id
func (r *SessionRepository) Get(ctx context.Context, id string) (*entity.Session, error) {
	query := `
		SELECT id, token, username, site, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`

	var s entity.Session
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.Token,
		&s.Username,
		&s.Site,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get session", zap.Error(err))
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// Save inserts the session or overwrites its token, username and site
func (r *SessionRepository) Save(ctx context.Context, s *entity.Session) error {
	now := r.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	query := `
		INSERT INTO sessions (id, token, username, site, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			username = excluded.username,
			site = excluded.site,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		s.ID, s.Token, s.Username, s.Site, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save session", zap.Error(err))
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// UpdateToken stores the token and username issued at login. An empty
// token logs the session out.
func (r *SessionRepository) UpdateToken(ctx context.Context, id, token, username string) error {
	query := `UPDATE sessions SET token = ?, username = ?, updated_at = ? WHERE id = ?`
	return r.update(ctx, "token", query, token, username, r.now(), id)
}

// UpdateSite stores the chosen site
func (r *SessionRepository) UpdateSite(ctx context.Context, id, site string) error {
	query := `UPDATE sessions SET site = ?, updated_at = ? WHERE id = ?`
	return r.update(ctx, "site", query, site, r.now(), id)
}

// Touch marks the session as used now
func (r *SessionRepository) Touch(ctx context.Context, id string) error {
	query := `UPDATE sessions SET updated_at = ? WHERE id = ?`
	return r.update(ctx, "updated_at", query, r.now(), id)
}

// DeleteIdle removes every session last used before the cutoff
func (r *SessionRepository) DeleteIdle(ctx context.Context, before time.Time) ([]string, error) {
	query := `DELETE FROM sessions WHERE updated_at < ? RETURNING id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, before.UTC())
	if err != nil {
		r.logger.Error("Failed to delete idle sessions", zap.Error(err))
		return nil, fmt.Errorf("failed to delete idle sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SessionRepository) update(ctx context.Context, what, query string, args ...interface{}) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update session", zap.String("field", what), zap.Error(err))
		return fmt.Errorf("failed to update session %s: %w", what, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entity.ErrSessionNotFound
	}
	return nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
