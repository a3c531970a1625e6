package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/domain/entity"
	"github.com/garyjia/grant-portal/internal/domain/event"
)

type mockRecordAPI struct {
	loginFunc          func(ctx context.Context, username, password string) (string, error)
	listRecordsFunc    func(ctx context.Context, token, site string) ([]entity.Record, error)
	updateStatusFunc   func(ctx context.Context, token, letterNo, status string) error
	updateCommentsFunc func(ctx context.Context, token, letterNo, comments, by string) error
	createRecordFunc   func(ctx context.Context, token, site string, draft entity.RecordDraft) error

	mu    sync.Mutex
	calls []string
}

func (m *mockRecordAPI) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockRecordAPI) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockRecordAPI) Login(ctx context.Context, username, password string) (string, error) {
	m.record("login")
	if m.loginFunc != nil {
		return m.loginFunc(ctx, username, password)
	}
	return "token", nil
}

func (m *mockRecordAPI) ListRecords(ctx context.Context, token, site string) ([]entity.Record, error) {
	m.record("list " + site)
	if m.listRecordsFunc != nil {
		return m.listRecordsFunc(ctx, token, site)
	}
	return []entity.Record{}, nil
}

func (m *mockRecordAPI) UpdateStatus(ctx context.Context, token, letterNo, status string) error {
	m.record("status " + letterNo)
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, token, letterNo, status)
	}
	return nil
}

func (m *mockRecordAPI) UpdateComments(ctx context.Context, token, letterNo, comments, by string) error {
	m.record("comments " + letterNo)
	if m.updateCommentsFunc != nil {
		return m.updateCommentsFunc(ctx, token, letterNo, comments, by)
	}
	return nil
}

func (m *mockRecordAPI) CreateRecord(ctx context.Context, token, site string, draft entity.RecordDraft) error {
	m.record("create " + site)
	if m.createRecordFunc != nil {
		return m.createRecordFunc(ctx, token, site, draft)
	}
	return nil
}

// mockSessionRepo keeps sessions in memory unless a func overrides it
type mockSessionRepo struct {
	getFunc         func(ctx context.Context, id string) (*entity.Session, error)
	updateTokenFunc func(ctx context.Context, id, token, username string) error

	mu       sync.Mutex
	sessions map[string]entity.Session
	touched  []string
}

func newMockSessionRepo(sessions ...entity.Session) *mockSessionRepo {
	m := &mockSessionRepo{sessions: make(map[string]entity.Session)}
	for _, s := range sessions {
		m.sessions[s.ID] = s
	}
	return m
}

func (m *mockSessionRepo) Get(ctx context.Context, id string) (*entity.Session, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *mockSessionRepo) Save(ctx context.Context, s *entity.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *mockSessionRepo) UpdateToken(ctx context.Context, id, token, username string) error {
	if m.updateTokenFunc != nil {
		return m.updateTokenFunc(ctx, id, token, username)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return entity.ErrSessionNotFound
	}
	s.Token, s.Username = token, username
	m.sessions[id] = s
	return nil
}

func (m *mockSessionRepo) UpdateSite(ctx context.Context, id, site string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return entity.ErrSessionNotFound
	}
	s.Site = site
	m.sessions[id] = s
	return nil
}

// Touch only records the call; tests drive UpdatedAt themselves
func (m *mockSessionRepo) Touch(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return entity.ErrSessionNotFound
	}
	m.touched = append(m.touched, id)
	return nil
}

func (m *mockSessionRepo) DeleteIdle(ctx context.Context, before time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(before) {
			ids = append(ids, id)
			delete(m.sessions, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockSessionRepo) Touched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.touched...)
}

type mockJournalRepo struct {
	createFunc       func(ctx context.Context, entry *entity.JournalEntry) error
	listFailuresFunc func(ctx context.Context, sessionID string, limit int) ([]*entity.JournalEntry, error)
	listFunc         func(ctx context.Context, sessionID string, limit int) ([]*entity.JournalEntry, error)

	mu      sync.Mutex
	entries []*entity.JournalEntry
}

func (m *mockJournalRepo) Create(ctx context.Context, entry *entity.JournalEntry) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockJournalRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]*entity.JournalEntry, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, sessionID, limit)
	}
	return nil, nil
}

func (m *mockJournalRepo) ListFailures(ctx context.Context, sessionID string, limit int) ([]*entity.JournalEntry, error) {
	if m.listFailuresFunc != nil {
		return m.listFailuresFunc(ctx, sessionID, limit)
	}
	return nil, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockPublisher struct {
	dispatchFunc func(ctx context.Context, evt *event.Event) error

	mu     sync.Mutex
	events []*event.Event
	async  int
}

// DispatchAsync records evt immediately
func (m *mockPublisher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	m.async++
}

func (m *mockPublisher) AsyncCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.async
}

func (m *mockPublisher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.mu.Lock()
	m.events = append(m.events, evt)
	m.mu.Unlock()
	if m.dispatchFunc != nil {
		return m.dispatchFunc(ctx, evt)
	}
	return nil
}

func (m *mockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *mockPublisher) Types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]event.Type, len(m.events))
	for i, e := range m.events {
		types[i] = e.Type
	}
	return types
}

type mockLogger struct {
	mu     sync.Mutex
	errors []string
	infoKV [][]interface{}
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoKV = append(m.infoKV, keysAndValues)
}

// infoValue returns the value logged under key by the most recent Info call
// that carried it
func (m *mockLogger) infoValue(key string) interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.infoKV) - 1; i >= 0; i-- {
		kv := m.infoKV[i]
		for j := 0; j+1 < len(kv); j += 2 {
			if kv[j] == key {
				return kv[j+1]
			}
		}
	}
	return nil
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) Errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errors...)
}

type mockExportJob struct {
	done   chan struct{}
	result *port.ExportResult
	err    error
}

func (j *mockExportJob) Done() <-chan struct{}               { return j.done }
func (j *mockExportJob) Result() (*port.ExportResult, error) { return j.result, j.err }

type mockExportQueue struct {
	submitFunc  func(ctx context.Context, req port.ExportRequest) (port.ExportJob, error)
	discardFunc func(ctx context.Context, res *port.ExportResult) error
}

func (m *mockExportQueue) Submit(ctx context.Context, req port.ExportRequest) (port.ExportJob, error) {
	return m.submitFunc(ctx, req)
}

func (m *mockExportQueue) Discard(ctx context.Context, res *port.ExportResult) error {
	if m.discardFunc != nil {
		return m.discardFunc(ctx, res)
	}
	return nil
}
