package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/domain/entity"
	"github.com/garyjia/grant-portal/internal/domain/event"
)

// EntryService backs the data entry form. Each session has one draft that
// survives failed submissions.
type EntryService interface {
	Draft(sessionID string) entity.RecordDraft
	SetField(sessionID string, field entity.Field, value string) error

	// SetFields applies input-name/value pairs; an unknown name rejects the
	// whole set and leaves the draft unchanged
	SetFields(sessionID string, values map[string]string) error

	// Submit posts the draft, with surrounding whitespace trimmed from
	// every field, and resets it on success
	Submit(ctx context.Context, sessionID string) error
	Reset(sessionID string)

	// ResetSession drops the session's draft; used as an event handler
	ResetSession(ctx context.Context, evt *event.Event) error
}

type entryServiceImpl struct {
	api      port.RecordAPI
	sessions port.SessionRepository
	events   EventPublisher
	config   DashboardConfig
	logger   Logger

	mu     sync.Mutex
	drafts map[string]*entity.RecordDraft
}

// NewEntryService creates a new EntryService
func NewEntryService(
	api port.RecordAPI,
	sessions port.SessionRepository,
	events EventPublisher,
	config DashboardConfig,
	logger Logger,
) EntryService {
	if config.DefaultSite == "" {
		config.DefaultSite = entity.DefaultSite
	}
	if len(config.StatusOptions) == 0 {
		config.StatusOptions = entity.DefaultStatusOptions()
	}
	return &entryServiceImpl{
		api:      api,
		sessions: sessions,
		events:   events,
		config:   config,
		logger:   logger,
		drafts:   make(map[string]*entity.RecordDraft),
	}
}

// draft returns the session's draft; callers hold mu
func (s *entryServiceImpl) draft(sessionID string) *entity.RecordDraft {
	d, ok := s.drafts[sessionID]
	if !ok {
		d = &entity.RecordDraft{}
		s.drafts[sessionID] = d
	}
	return d
}

func (s *entryServiceImpl) Draft(sessionID string) entity.RecordDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.drafts[sessionID]; ok {
		return *d
	}
	return entity.RecordDraft{}
}

func (s *entryServiceImpl) SetField(sessionID string, field entity.Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft(sessionID).Set(field, value)
}

func (s *entryServiceImpl) SetFields(sessionID string, values map[string]string) error {
	next := s.Draft(sessionID)
	for name, value := range values {
		f, err := entity.ParseField(name)
		if err != nil {
			return err
		}
		if err := next.Set(f, value); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if next.IsEmpty() {
		delete(s.drafts, sessionID)
		return nil
	}
	*s.draft(sessionID) = next
	return nil
}

func (s *entryServiceImpl) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, sessionID)
}

func (s *entryServiceImpl) ResetSession(ctx context.Context, evt *event.Event) error {
	s.Reset(evt.SessionID)
	return nil
}

func (s *entryServiceImpl) Submit(ctx context.Context, sessionID string) error {
	entered := s.Draft(sessionID)
	draft := entered.Trimmed()
	if err := draft.Validate(s.config.StatusOptions); err != nil {
		return err
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("%w: %s", entity.ErrSessionNotFound, sessionID)
	}
	site := sess.SiteOr(s.config.DefaultSite)

	if err := s.api.CreateRecord(ctx, sess.Token, site, draft); err != nil {
		s.logger.Error("Failed to create record",
			"session_id", sessionID,
			"site", site,
			"letter_no", draft.LetterNo,
			"error", err)
		return err
	}

	s.mu.Lock()
	if current, ok := s.drafts[sessionID]; ok && *current == entered {
		delete(s.drafts, sessionID)
	}
	s.mu.Unlock()

	evt := event.NewEvent(event.TypeRecordCreated, sessionID, draft.LetterNo, map[string]interface{}{
		event.KeySite: site,
	})
	if err := s.events.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Failed to handle event", "event_type", evt.Type, "error", err)
	}

	s.logger.Info("Record created", "session_id", sessionID, "site", site, "letter_no", draft.LetterNo)
	return nil
}
