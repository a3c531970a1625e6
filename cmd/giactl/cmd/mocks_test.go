package cmd

import (
	"context"
	"sync"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/application/service"
	"github.com/garyjia/grant-portal/internal/domain/entity"
	"github.com/garyjia/grant-portal/internal/domain/event"
)

type mockAuthService struct {
	loginFunc func(ctx context.Context, sessionID, username, password string) error

	mu       sync.Mutex
	sessions map[string]*entity.Session
}

func newMockAuthService() *mockAuthService {
	return &mockAuthService{sessions: make(map[string]*entity.Session)}
}

func (m *mockAuthService) EnsureSession(ctx context.Context, id string) (*entity.Session, error) {
	return m.OpenSession(ctx, id)
}

func (m *mockAuthService) OpenSession(ctx context.Context, id string) (*entity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = &entity.Session{ID: id}
		m.sessions[id] = s
	}
	cp := *s
	return &cp, nil
}

func (m *mockAuthService) Login(ctx context.Context, sessionID, username, password string) error {
	if m.loginFunc != nil {
		if err := m.loginFunc(ctx, sessionID, username, password); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID].Token = "tok"
	m.sessions[sessionID].Username = username
	return nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID].Token = ""
	return nil
}

func (m *mockAuthService) SetSite(ctx context.Context, sessionID, site string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID].Site = site
	return nil
}

func (m *mockAuthService) PruneIdle(ctx context.Context) (int, error) {
	return 0, nil
}

func (m *mockAuthService) session(id string) entity.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.sessions[id]
}

type mockDashboardService struct {
	viewFunc         func(ctx context.Context, sessionID string) (*service.DashboardView, error)
	changeStatusFunc func(ctx context.Context, sessionID, key, status string) error
	editCommentsFunc func(ctx context.Context, sessionID, key, comments, givenBy string) error
	sendCommentFunc  func(ctx context.Context, sessionID, key string) (*service.CommentReceipt, error)
	applyFilterFunc  func(ctx context.Context, sessionID, start, end string) error
	historyFunc      func(ctx context.Context, sessionID string, limit int) ([]*entity.JournalEntry, error)
}

func (m *mockDashboardService) View(ctx context.Context, sessionID string) (*service.DashboardView, error) {
	if m.viewFunc != nil {
		return m.viewFunc(ctx, sessionID)
	}
	return &service.DashboardView{}, nil
}

func (m *mockDashboardService) Refresh(ctx context.Context, sessionID string) error {
	return nil
}

func (m *mockDashboardService) ChangeStatus(ctx context.Context, sessionID, key, status string) error {
	if m.changeStatusFunc != nil {
		return m.changeStatusFunc(ctx, sessionID, key, status)
	}
	return nil
}

func (m *mockDashboardService) EditComments(ctx context.Context, sessionID, key, comments, givenBy string) error {
	if m.editCommentsFunc != nil {
		return m.editCommentsFunc(ctx, sessionID, key, comments, givenBy)
	}
	return nil
}

func (m *mockDashboardService) SendComment(ctx context.Context, sessionID, key string) (*service.CommentReceipt, error) {
	if m.sendCommentFunc != nil {
		return m.sendCommentFunc(ctx, sessionID, key)
	}
	return &service.CommentReceipt{}, nil
}

func (m *mockDashboardService) ApplyFilter(ctx context.Context, sessionID, start, end string) error {
	if m.applyFilterFunc != nil {
		return m.applyFilterFunc(ctx, sessionID, start, end)
	}
	return nil
}

func (m *mockDashboardService) ResetFilter(ctx context.Context, sessionID string) error {
	return nil
}

func (m *mockDashboardService) Record(ctx context.Context, sessionID, key string) (entity.Record, string, error) {
	return entity.Record{}, "", entity.ErrRecordNotFound
}

func (m *mockDashboardService) ViewRecord(ctx context.Context, sessionID, key string) (string, error) {
	return "", nil
}

func (m *mockDashboardService) DeleteRecord(ctx context.Context, sessionID, key string) (string, error) {
	return "", nil
}

func (m *mockDashboardService) History(ctx context.Context, sessionID string, limit int) ([]*entity.JournalEntry, error) {
	if m.historyFunc != nil {
		return m.historyFunc(ctx, sessionID, limit)
	}
	return nil, nil
}

func (m *mockDashboardService) ResetSession(ctx context.Context, evt *event.Event) error {
	return nil
}

type mockEntryService struct {
	submitFunc func(ctx context.Context, draft entity.RecordDraft) error

	mu     sync.Mutex
	drafts map[string]entity.RecordDraft
}

func newMockEntryService() *mockEntryService {
	return &mockEntryService{drafts: make(map[string]entity.RecordDraft)}
}

func (m *mockEntryService) Draft(sessionID string) entity.RecordDraft {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drafts[sessionID]
}

func (m *mockEntryService) SetField(sessionID string, field entity.Field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.drafts[sessionID]
	if err := d.Set(field, value); err != nil {
		return err
	}
	m.drafts[sessionID] = d
	return nil
}

func (m *mockEntryService) SetFields(sessionID string, values map[string]string) error {
	for name, v := range values {
		f, err := entity.ParseField(name)
		if err != nil {
			return err
		}
		if err := m.SetField(sessionID, f, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockEntryService) Submit(ctx context.Context, sessionID string) error {
	if m.submitFunc != nil {
		if err := m.submitFunc(ctx, m.Draft(sessionID)); err != nil {
			return err
		}
	}
	m.Reset(sessionID)
	return nil
}

func (m *mockEntryService) Reset(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, sessionID)
}

func (m *mockEntryService) ResetSession(ctx context.Context, evt *event.Event) error {
	m.Reset(evt.SessionID)
	return nil
}

type mockExportService struct {
	exportAndWaitFunc func(ctx context.Context, sessionID, key string, format port.ExportFormat) (*port.ExportResult, error)
	discarded         int
}

func (m *mockExportService) Discard(ctx context.Context, res *port.ExportResult) error {
	m.discarded++
	return nil
}

func (m *mockExportService) Export(ctx context.Context, sessionID, key string, format port.ExportFormat) (port.ExportJob, error) {
	return nil, nil
}

func (m *mockExportService) ExportAndWait(ctx context.Context, sessionID, key string, format port.ExportFormat) (*port.ExportResult, error) {
	return m.exportAndWaitFunc(ctx, sessionID, key, format)
}
