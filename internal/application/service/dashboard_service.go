package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/domain/dashboard"
	"github.com/garyjia/grant-portal/internal/domain/entity"
	"github.com/garyjia/grant-portal/internal/domain/event"
)

// recentFailureLimit bounds the failed writes listed under the table
const recentFailureLimit = 5

const defaultHistoryLimit = 20

// Write actions recorded on failure events
const (
	ActionStatus  = "status"
	ActionComment = "comment"
)

// DashboardView is everything the dashboard page renders
type DashboardView struct {
	dashboard.View
	StatusOptions entity.StatusOptions
	LoadError     string
	Diverged      int
	Failures      []*entity.JournalEntry
}

// CommentReceipt confirms a sent comment
type CommentReceipt struct {
	LetterNo        string
	Comments        string
	CommentsGivenBy string
}

// Message is the confirmation shown after a successful send
func (r *CommentReceipt) Message() string {
	return fmt.Sprintf("Comments sent for record with Letter No \"%s\":\n%s\nComments Given By: %s",
		r.LetterNo, r.Comments, r.CommentsGivenBy)
}

// DashboardConfig holds dashboard behaviour settings
type DashboardConfig struct {
	DefaultSite   string
	StatusOptions entity.StatusOptions
}

// DashboardService owns each session's record cache and pushes edits to the
// Record API
type DashboardService interface {
	// View loads the site's records on first use, then renders from cache.
	// A failed load is reported in the view, not as an error.
	View(ctx context.Context, sessionID string) (*DashboardView, error)
	Refresh(ctx context.Context, sessionID string) error

	ChangeStatus(ctx context.Context, sessionID, key, status string) error
	EditComments(ctx context.Context, sessionID, key, comments, givenBy string) error
	SendComment(ctx context.Context, sessionID, key string) (*CommentReceipt, error)

	ApplyFilter(ctx context.Context, sessionID, start, end string) error
	ResetFilter(ctx context.Context, sessionID string) error

	// Record returns a cached record and the site it belongs to
	Record(ctx context.Context, sessionID, key string) (entity.Record, string, error)
	ViewRecord(ctx context.Context, sessionID, key string) (string, error)
	DeleteRecord(ctx context.Context, sessionID, key string) (string, error)

	// History lists the session's journaled writes, newest first
	History(ctx context.Context, sessionID string, limit int) ([]*entity.JournalEntry, error)

	// ResetSession drops the session's cache; used as an event handler
	ResetSession(ctx context.Context, evt *event.Event) error
}

type dashboardServiceImpl struct {
	api      port.RecordAPI
	sessions port.SessionRepository
	journal  port.JournalRepository
	caches   *dashboard.Registry
	events   EventPublisher
	config   DashboardConfig
	logger   Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(
	api port.RecordAPI,
	sessions port.SessionRepository,
	journal port.JournalRepository,
	caches *dashboard.Registry,
	events EventPublisher,
	config DashboardConfig,
	logger Logger,
) DashboardService {
	if config.DefaultSite == "" {
		config.DefaultSite = entity.DefaultSite
	}
	if len(config.StatusOptions) == 0 {
		config.StatusOptions = entity.DefaultStatusOptions()
	}
	return &dashboardServiceImpl{
		api:      api,
		sessions: sessions,
		journal:  journal,
		caches:   caches,
		events:   events,
		config:   config,
		logger:   logger,
	}
}

// state resolves the session and its cache for the session's site
func (s *dashboardServiceImpl) state(ctx context.Context, sessionID string) (*entity.Session, *dashboard.Cache, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, fmt.Errorf("%w: %s", entity.ErrSessionNotFound, sessionID)
	}
	return sess, s.caches.For(sessionID, sess.SiteOr(s.config.DefaultSite)), nil
}

func (s *dashboardServiceImpl) View(ctx context.Context, sessionID string) (*DashboardView, error) {
	sess, cache, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	view := &DashboardView{StatusOptions: s.config.StatusOptions}
	if !cache.Loaded() {
		if err := s.load(ctx, sess, cache); err != nil {
			view.LoadError = MsgLoadFailed
		}
	}

	view.View = cache.Snapshot()
	view.Diverged = cache.DivergedCount()

	failures, err := s.journal.ListFailures(ctx, sessionID, recentFailureLimit)
	if err != nil {
		s.logger.Error("Failed to list recent failures", "session_id", sessionID, "error", err)
	}
	view.Failures = failures
	return view, nil
}

func (s *dashboardServiceImpl) Refresh(ctx context.Context, sessionID string) error {
	sess, cache, err := s.state(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.load(ctx, sess, cache)
}

// load replaces the cache on success. On failure the cache is left as it
// was, so an unloaded cache is retried on the next render.
func (s *dashboardServiceImpl) load(ctx context.Context, sess *entity.Session, cache *dashboard.Cache) error {
	site := cache.Site()
	records, err := s.api.ListRecords(ctx, sess.Token, site)
	if err != nil {
		s.logger.Error("Failed to fetch records", "session_id", sess.ID, "site", site, "error", err)
		s.publish(ctx, event.NewEvent(event.TypeLoadFailed, sess.ID, "", map[string]interface{}{
			event.KeySite:  site,
			event.KeyError: err,
		}))
		return fmt.Errorf("failed to load records for %s: %w", site, err)
	}

	cache.Replace(records)
	s.publish(ctx, event.NewEvent(event.TypeRecordsLoaded, sess.ID, "", map[string]interface{}{
		event.KeySite:  site,
		event.KeyCount: len(records),
	}))
	return nil
}

func (s *dashboardServiceImpl) ChangeStatus(ctx context.Context, sessionID, key, status string) error {
	if !s.config.StatusOptions.Contains(status) {
		return fmt.Errorf("%w: %q", entity.ErrInvalidStatus, status)
	}

	sess, cache, err := s.state(ctx, sessionID)
	if err != nil {
		return err
	}

	w, err := cache.SetStatus(key, status)
	if err != nil {
		return err
	}

	err = s.api.UpdateStatus(ctx, sess.Token, w.LetterNo, status)
	cache.Complete(w, err)
	if err != nil {
		s.writeFailed(ctx, sessionID, w.LetterNo, ActionStatus, err)
		return fmt.Errorf("failed to save status of %s: %w", w.LetterNo, err)
	}

	s.publish(ctx, event.NewEvent(event.TypeStatusChanged, sessionID, w.LetterNo, map[string]interface{}{
		event.KeyStatus: status,
	}))
	return nil
}

func (s *dashboardServiceImpl) EditComments(ctx context.Context, sessionID, key, comments, givenBy string) error {
	_, cache, err := s.state(ctx, sessionID)
	if err != nil {
		return err
	}
	return cache.EditComments(key, comments, givenBy)
}

func (s *dashboardServiceImpl) SendComment(ctx context.Context, sessionID, key string) (*CommentReceipt, error) {
	sess, cache, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	w, sent, err := cache.BeginCommentSend(key, validateComment)
	if err != nil {
		return nil, err
	}

	err = s.api.UpdateComments(ctx, sess.Token, w.LetterNo, sent.Comments, sent.CommentsGivenBy)
	cache.Complete(w, err)
	if err != nil {
		s.writeFailed(ctx, sessionID, w.LetterNo, ActionComment, err)
		return nil, fmt.Errorf("failed to send comments for %s: %w", w.LetterNo, err)
	}

	cache.ClearComments(w, sent)
	s.publish(ctx, event.NewEvent(event.TypeCommentSent, sessionID, w.LetterNo, map[string]interface{}{
		event.KeyComments: sent.Comments,
		event.KeyBy:       sent.CommentsGivenBy,
	}))

	return &CommentReceipt{
		LetterNo:        w.LetterNo,
		Comments:        sent.Comments,
		CommentsGivenBy: sent.CommentsGivenBy,
	}, nil
}

// validateComment requires both comment fields before anything is sent
func validateComment(rec entity.Record) error {
	if strings.TrimSpace(rec.Comments) == "" {
		return ErrCommentRequired
	}
	if strings.TrimSpace(rec.CommentsGivenBy) == "" {
		return ErrAttributionRequired
	}
	return nil
}

func (s *dashboardServiceImpl) ApplyFilter(ctx context.Context, sessionID, start, end string) error {
	r, err := dashboard.NewDateRange(start, end)
	if err != nil {
		return err
	}

	_, cache, err := s.state(ctx, sessionID)
	if err != nil {
		return err
	}
	cache.SetRange(r)
	return nil
}

func (s *dashboardServiceImpl) ResetFilter(ctx context.Context, sessionID string) error {
	_, cache, err := s.state(ctx, sessionID)
	if err != nil {
		return err
	}
	cache.ClearRange()
	return nil
}

func (s *dashboardServiceImpl) Record(ctx context.Context, sessionID, key string) (entity.Record, string, error) {
	_, cache, err := s.state(ctx, sessionID)
	if err != nil {
		return entity.Record{}, "", err
	}
	row, err := cache.Get(key)
	if err != nil {
		return entity.Record{}, "", err
	}
	return row.Record, cache.Site(), nil
}

func (s *dashboardServiceImpl) ViewRecord(ctx context.Context, sessionID, key string) (string, error) {
	rec, _, err := s.Record(ctx, sessionID, key)
	if err != nil {
		return "", err
	}
	return "Viewing record " + rec.LetterNo, nil
}

func (s *dashboardServiceImpl) DeleteRecord(ctx context.Context, sessionID, key string) (string, error) {
	rec, _, err := s.Record(ctx, sessionID, key)
	if err != nil {
		return "", err
	}
	return "Delete is not available for record " + rec.LetterNo, nil
}

func (s *dashboardServiceImpl) History(ctx context.Context, sessionID string, limit int) ([]*entity.JournalEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.journal.ListBySession(ctx, sessionID, limit)
}

func (s *dashboardServiceImpl) ResetSession(ctx context.Context, evt *event.Event) error {
	s.caches.Drop(evt.SessionID)
	return nil
}

func (s *dashboardServiceImpl) writeFailed(ctx context.Context, sessionID, letterNo, action string, err error) {
	s.logger.Error("Dashboard write failed",
		"session_id", sessionID,
		"letter_no", letterNo,
		"action", action,
		"error", err)
	s.publish(ctx, event.NewEvent(event.TypeWriteFailed, sessionID, letterNo, map[string]interface{}{
		event.KeyAction: action,
		event.KeyError:  err,
	}))
}

// publish dispatches evt; handler failures never fail the user's action
func (s *dashboardServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if err := s.events.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Failed to handle event", "event_type", evt.Type, "error", err)
	}
}
