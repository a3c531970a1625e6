package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/domain/entity"
	"github.com/garyjia/grant-portal/internal/domain/event"
)

// ErrReservedSessionID is returned when a trusted client asks for an id
// from the browser namespace
var ErrReservedSessionID = errors.New("session id is reserved for browser sessions")

// AuthConfig holds session lifetime settings
type AuthConfig struct {
	// IdleTimeout expires sessions not used for this long; zero keeps them
	IdleTimeout time.Duration

	// TouchInterval is the least time between two last-use updates of a session
	TouchInterval time.Duration
}

// AuthService backs the login screen and the persisted session state
type AuthService interface {
	// EnsureSession returns the browser session with id. An empty, unknown,
	// expired or non-uuid id gets a new session under a fresh random id, so
	// a client cannot pick its own.
	EnsureSession(ctx context.Context, id string) (*entity.Session, error)

	// OpenSession returns the session with exactly id, creating it if needed.
	// Used by trusted local clients such as giactl; uuid ids belong to
	// browsers and are refused.
	OpenSession(ctx context.Context, id string) (*entity.Session, error)

	// Login exchanges credentials for a token and stores it on the session
	Login(ctx context.Context, sessionID, username, password string) error

	// Logout clears the stored token
	Logout(ctx context.Context, sessionID string) error

	// SetSite stores the chosen site; blank restores the default
	SetSite(ctx context.Context, sessionID, site string) error

	// PruneIdle deletes sessions idle past the timeout and announces each
	// one with a session.expired event
	PruneIdle(ctx context.Context) (int, error)
}

type authServiceImpl struct {
	api       port.RecordAPI
	sessions  port.SessionRepository
	txManager port.TransactionManager
	events    EventPublisher
	config    AuthConfig
	logger    Logger
	now       func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	api port.RecordAPI,
	sessions port.SessionRepository,
	txManager port.TransactionManager,
	events EventPublisher,
	config AuthConfig,
	logger Logger,
) AuthService {
	return &authServiceImpl{
		api:       api,
		sessions:  sessions,
		txManager: txManager,
		events:    events,
		config:    config,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// browserID reports whether id is a canonical uuid, the only form
// EnsureSession hands out
func browserID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}

func (s *authServiceImpl) EnsureSession(ctx context.Context, id string) (*entity.Session, error) {
	if browserID(id) {
		sess, err := s.sessions.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess != nil && !s.expired(sess) {
			s.touch(ctx, sess)
			return sess, nil
		}
	}
	return s.create(ctx, uuid.NewString())
}

func (s *authServiceImpl) OpenSession(ctx context.Context, id string) (*entity.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty id", entity.ErrSessionNotFound)
	}
	if browserID(id) {
		return nil, fmt.Errorf("%w: %s", ErrReservedSessionID, id)
	}
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return s.create(ctx, id)
	}
	if s.expired(sess) {
		s.publish(ctx, event.NewEvent(event.TypeSessionExpired, id, "", nil))
		s.logger.Info("Session expired", "session_id", id)
		return s.create(ctx, id)
	}
	s.touch(ctx, sess)
	return sess, nil
}

// create stores a blank session, replacing any row with the same id
func (s *authServiceImpl) create(ctx context.Context, id string) (*entity.Session, error) {
	now := s.now()
	sess := &entity.Session{ID: id, CreatedAt: now, UpdatedAt: now}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

func (s *authServiceImpl) expired(sess *entity.Session) bool {
	return s.config.IdleTimeout > 0 && s.now().Sub(sess.UpdatedAt) > s.config.IdleTimeout
}

// touch records the use of sess. A failed update only shortens its life.
func (s *authServiceImpl) touch(ctx context.Context, sess *entity.Session) {
	if s.now().Sub(sess.UpdatedAt) < s.config.TouchInterval {
		return
	}
	if err := s.sessions.Touch(ctx, sess.ID); err != nil {
		s.logger.Error("Failed to touch session", "session_id", sess.ID, "error", err)
		return
	}
	sess.UpdatedAt = s.now()
}

func (s *authServiceImpl) PruneIdle(ctx context.Context) (int, error) {
	if s.config.IdleTimeout <= 0 {
		return 0, nil
	}
	ids, err := s.sessions.DeleteIdle(ctx, s.now().Add(-s.config.IdleTimeout))
	if err != nil {
		s.logger.Error("Failed to prune sessions", "error", err)
		return 0, err
	}
	for _, id := range ids {
		s.publish(ctx, event.NewEvent(event.TypeSessionExpired, id, "", nil))
	}
	if len(ids) > 0 {
		s.logger.Info("Idle sessions pruned", "count", len(ids))
	}
	return len(ids), nil
}

// publish dispatches evt; handler failures are logged only
func (s *authServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if err := s.events.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Failed to handle event", "event_type", evt.Type, "error", err)
	}
}

func (s *authServiceImpl) Login(ctx context.Context, sessionID, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return ErrCredentialsRequired
	}

	token, err := s.api.Login(ctx, username, password)
	if err != nil {
		s.logger.Error("Login failed", "username", username, "error", err)
		return err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.sessions.UpdateToken(txCtx, sessionID, token, username); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
		evt := event.NewEvent(event.TypeSessionLoggedIn, sessionID, "", map[string]interface{}{
			event.KeyUsername: username,
		})
		return s.events.Dispatch(txCtx, evt)
	})
	if err != nil {
		s.logger.Error("Failed to persist login", "session_id", sessionID, "error", err)
		return err
	}

	s.logger.Info("User logged in", "session_id", sessionID, "username", username)
	return nil
}

func (s *authServiceImpl) Logout(ctx context.Context, sessionID string) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.sessions.UpdateToken(txCtx, sessionID, "", ""); err != nil {
			return fmt.Errorf("clear token: %w", err)
		}
		return s.events.Dispatch(txCtx, event.NewEvent(event.TypeSessionLoggedOut, sessionID, "", nil))
	})
	if err != nil {
		s.logger.Error("Failed to log out", "session_id", sessionID, "error", err)
		return err
	}
	return nil
}

func (s *authServiceImpl) SetSite(ctx context.Context, sessionID, site string) error {
	site = strings.TrimSpace(site)
	if err := s.sessions.UpdateSite(ctx, sessionID, site); err != nil {
		s.logger.Error("Failed to set site", "session_id", sessionID, "site", site, "error", err)
		return err
	}
	s.logger.Info("Site changed", "session_id", sessionID, "site", site)
	return nil
}
