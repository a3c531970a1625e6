package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/application/service"
	"github.com/garyjia/grant-portal/internal/domain/dashboard"
	"github.com/garyjia/grant-portal/internal/domain/entity"
)

type testPortal struct {
	server *Server
	auth   *mockAuthService
	dash   *mockDashboardService
	entry  *mockEntryService
	export *mockExportService
}

func newTestPortal(t *testing.T, portal PortalConfig) *testPortal {
	t.Helper()
	gin.SetMode(gin.TestMode)

	p := &testPortal{
		auth:   newMockAuthService(),
		dash:   &mockDashboardService{},
		entry:  newMockEntryService(),
		export: &mockExportService{},
	}
	srv, err := NewServer(DefaultServerConfig(), portal, Services{
		Auth:      p.auth,
		Dashboard: p.dash,
		Entry:     p.entry,
		Export:    p.export,
	}, nil, mockLogger{})
	require.NoError(t, err)
	p.server = srv
	return p
}

func (p *testPortal) do(method, path, sessionID string, form url.Values) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: DefaultPortalConfig().SessionCookie, Value: sessionID})
	}
	w := httptest.NewRecorder()
	p.server.Handler().ServeHTTP(w, req)
	return w
}

func sampleView() *service.DashboardView {
	return &service.DashboardView{
		View: dashboard.View{
			Site:   "drdotwo",
			Loaded: true,
			Total:  2,
			Rows: []dashboard.Row{
				{Key: "7", Record: entity.Record{ID: "7", LetterNo: "L-7", Status: entity.StatusInProcess}},
				{Key: "3", Record: entity.Record{ID: "3", LetterNo: "L-3", Status: entity.StatusAccepted}, Diverged: true},
			},
		},
		StatusOptions: entity.DefaultStatusOptions(),
		Diverged:      1,
	}
}

func TestHealthCheck(t *testing.T) {
	p := newTestPortal(t, DefaultPortalConfig())

	w := p.do(http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestSessionCookieIssuedOnFirstVisit(t *testing.T) {
	p := newTestPortal(t, DefaultPortalConfig())

	w := p.do(http.MethodGet, "/login", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "gia_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestUnknownSessionCookieIsReplaced(t *testing.T) {
	p := newTestPortal(t, DefaultPortalConfig())

	w := p.do(http.MethodGet, "/login", "forged-id", nil)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, "forged-id", cookies[0].Value)
}

func TestCLISessionCookieIsReplaced(t *testing.T) {
	p := newTestPortal(t, DefaultPortalConfig())
	_, err := p.auth.OpenSession(context.Background(), "cli")
	require.NoError(t, err)
	require.NoError(t, p.auth.Login(context.Background(), "cli", "alice", "pw"))
	viewed := false
	p.dash.viewFunc = func(ctx context.Context, sessionID string) (*service.DashboardView, error) {
		viewed = true
		return sampleView(), nil
	}

	w := p.do(http.MethodGet, "/dashboard", "cli", nil)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, "cli", cookies[0].Value)
	assert.False(t, viewed)
}

func TestRequireLogin(t *testing.T) {
	t.Run("redirects anonymous users", func(t *testing.T) {
		p := newTestPortal(t, DefaultPortalConfig())

		w := p.do(http.MethodGet, "/dashboard", "", nil)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})

	t.Run("open when disabled", func(t *testing.T) {
		cfg := DefaultPortalConfig()
		cfg.RequireLogin = false
		p := newTestPortal(t, cfg)

		w := p.do(http.MethodGet, "/form", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		loginErr   error
		wantStatus int
		wantText   string
	}{
		{"accepted", nil, http.StatusSeeOther, ""},
		{"missing fields", service.ErrCredentialsRequired, http.StatusBadRequest, service.MsgCredentialsRequired},
		{"rejected", &port.APIError{Status: 401, Message: "Invalid credentials"}, http.StatusUnauthorized, "Invalid credentials"},
		{"rejected without message", &port.APIError{Status: 401}, http.StatusUnauthorized, service.MsgLoginFailed},
		{"network", errors.New("dial tcp: refused"), http.StatusBadGateway, service.MsgNetworkError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPortal(t, DefaultPortalConfig())
			p.auth.loginFunc = func(ctx context.Context, sessionID, username, password string) error {
				return tt.loginErr
			}
			sess, _ := p.auth.EnsureSession(context.Background(), "")

			w := p.do(http.MethodPost, "/login", sess.ID, url.Values{"username": {"alice"}, "password": {"pw"}})

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.loginErr == nil {
				assert.Equal(t, "/home", w.Header().Get("Location"))
				return
			}
			assert.Contains(t, w.Body.String(), tt.wantText)
			assert.Contains(t, w.Body.String(), `value="alice"`)
		})
	}
}

func TestLoginPageRedirectsWhenLoggedIn(t *testing.T) {
	p := newTestPortal(t, DefaultPortalConfig())
	id := p.auth.logIn()

	w := p.do(http.MethodGet, "/login", id, nil)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/home", w.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	p := newTestPortal(t, DefaultPortalConfig())
	id := p.auth.logIn()

	w := p.do(http.MethodPost, "/logout", id, url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)

	w = p.do(http.MethodGet, "/dashboard", id, nil)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestDashboardRendersRowsInOrder(t *testing.T) {
	p := newTestPortal(t, DefaultPortalConfig())
	p.dash.viewFunc = func(ctx context.Context, sessionID string) (*service.DashboardView, error) {
		return sampleView(), nil
	}
	id := p.auth.logIn()

	w := p.do(http.MethodGet, "/home", id, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	first := strings.Index(body, "L-7")
	second := strings.Index(body, "L-3")
	require.True(t, first > 0 && second > 0)
	assert.Less(t, first, second, "rows keep fetch order")
	assert.Contains(t, body, "<td>1</td>")
	assert.Contains(t, body, "<td>2</td>")
	assert.Equal(t, 1, strings.Count(body, "not saved</span>"))
}

func TestDashboardShowsLoadError(t *testing.T) {
	p := newTestPortal(t, DefaultPortalConfig())
	p.dash.viewFunc = func(ctx context.Context, sessionID string) (*service.DashboardView, error) {
		return &service.DashboardView{LoadError: service.MsgLoadFailed}, nil
	}
	id := p.auth.logIn()

	w := p.do(http.MethodGet, "/dashboard", id, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No records.")
	assert.Contains(t, w.Body.String(), "Records could not be loaded")
}

func TestSendComment(t *testing.T) {
	t.Run("success flashes the receipt", func(t *testing.T) {
		p := newTestPortal(t, DefaultPortalConfig())
		var edited []string
		p.dash.editCommentsFunc = func(ctx context.Context, sessionID, key, comments, givenBy string) error {
			edited = []string{key, comments, givenBy}
			return nil
		}
		p.dash.sendCommentFunc = func(ctx context.Context, sessionID, key string) (*service.CommentReceipt, error) {
			return &service.CommentReceipt{LetterNo: "L-7", Comments: "Fine", CommentsGivenBy: "Director"}, nil
		}
		id := p.auth.logIn()

		w := p.do(http.MethodPost, "/dashboard/records/7/comment", id,
			url.Values{"comments": {"Fine"}, "commentsGivenBy": {"Director"}})
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, []string{"7", "Fine", "Director"}, edited)

		w = p.do(http.MethodGet, "/dashboard", id, nil)
		assert.Contains(t, w.Body.String(), "Comments sent for record with Letter No &#34;L-7&#34;")
	})

	t.Run("validation message", func(t *testing.T) {
		p := newTestPortal(t, DefaultPortalConfig())
		p.dash.sendCommentFunc = func(ctx context.Context, sessionID, key string) (*service.CommentReceipt, error) {
			return nil, service.ErrAttributionRequired
		}
		id := p.auth.logIn()

		p.do(http.MethodPost, "/dashboard/records/7/comment", id, url.Values{"comments": {"x"}, "commentsGivenBy": {""}})

		w := p.do(http.MethodGet, "/dashboard", id, nil)
		assert.Contains(t, w.Body.String(), "Please enter the name in &#39;Comments Given By&#39; before sending.")
	})

	t.Run("remote failure", func(t *testing.T) {
		p := newTestPortal(t, DefaultPortalConfig())
		p.dash.sendCommentFunc = func(ctx context.Context, sessionID, key string) (*service.CommentReceipt, error) {
			return nil, errors.New("timeout")
		}
		id := p.auth.logIn()

		p.do(http.MethodPost, "/dashboard/records/7/comment", id, url.Values{})

		w := p.do(http.MethodGet, "/dashboard", id, nil)
		assert.Contains(t, w.Body.String(), "Comments not saved: timeout")
	})
}

func TestChangeStatus(t *testing.T) {
	p := newTestPortal(t, DefaultPortalConfig())
	var got string
	p.dash.changeStatusFunc = func(ctx context.Context, sessionID, key, status string) error {
		got = key + "=" + status
		return errors.New("down")
	}
	id := p.auth.logIn()

	w := p.do(http.MethodPost, "/dashboard/records/3/status", id, url.Values{"status": {entity.StatusRejected}})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	assert.Equal(t, "3=Rejected", got)

	w = p.do(http.MethodGet, "/dashboard", id, nil)
	assert.Contains(t, w.Body.String(), "Status not saved: down")
}

func TestRecordKeyWithSlash(t *testing.T) {
	p := newTestPortal(t, DefaultPortalConfig())
	p.dash.viewFunc = func(ctx context.Context, sessionID string) (*service.DashboardView, error) {
		return &service.DashboardView{
			View: dashboard.View{
				Site:   "drdotwo",
				Loaded: true,
				Total:  1,
				Rows:   []dashboard.Row{{Key: "A/1", Record: entity.Record{ID: "A/1", LetterNo: "L-A1", AmountSanctioned: "25000"}}},
			},
			StatusOptions: entity.DefaultStatusOptions(),
		}, nil
	}
	var got string
	p.dash.changeStatusFunc = func(ctx context.Context, sessionID, key, status string) error {
		got = key
		return nil
	}
	id := p.auth.logIn()

	body := p.do(http.MethodGet, "/dashboard", id, nil).Body.String()
	assert.Contains(t, body, `action="/dashboard/records/A%2F1/status"`)
	assert.Contains(t, body, "<td>25000</td>", "amount shown as received")

	w := p.do(http.MethodPost, "/dashboard/records/A%2F1/status", id, url.Values{"status": {entity.StatusAccepted}})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "A/1", got)
}

func TestFilter(t *testing.T) {
	p := newTestPortal(t, DefaultPortalConfig())
	p.dash.applyFilterFunc = func(ctx context.Context, sessionID, start, end string) error {
		_, err := dashboard.NewDateRange(start, end)
		return err
	}
	id := p.auth.logIn()

	p.do(http.MethodPost, "/dashboard/filter", id, url.Values{"start": {"2024-02-01"}, "end": {"2024-01-01"}})
	w := p.do(http.MethodGet, "/dashboard", id, nil)
	assert.Contains(t, w.Body.String(), service.MsgRangeInverted)

	p.do(http.MethodPost, "/dashboard/filter/reset", id, url.Values{})
	assert.True(t, p.dash.resetFilterCalled)
}

func TestViewAndDeletePlaceholders(t *testing.T) {
	p := newTestPortal(t, DefaultPortalConfig())
	p.dash.viewRecordFunc = func(ctx context.Context, sessionID, key string) (string, error) {
		return "Viewing record L-" + key, nil
	}
	p.dash.deleteRecordFunc = func(ctx context.Context, sessionID, key string) (string, error) {
		return "Delete is not available for record L-" + key, nil
	}
	id := p.auth.logIn()

	p.do(http.MethodGet, "/dashboard/records/7/view", id, nil)
	p.do(http.MethodPost, "/dashboard/records/7/delete", id, url.Values{})

	body := p.do(http.MethodGet, "/dashboard", id, nil).Body.String()
	assert.Contains(t, body, "Viewing record L-7")
	assert.Contains(t, body, "Delete is not available for record L-7")
}

func TestSetSite(t *testing.T) {
	p := newTestPortal(t, DefaultPortalConfig())
	id := p.auth.logIn()

	w := p.do(http.MethodPost, "/dashboard/site", id, url.Values{"site": {"hq"}})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	sess, _ := p.auth.EnsureSession(context.Background(), id)
	assert.Equal(t, "hq", sess.Site)
}

func TestExportRecord(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "L-7.xlsx")
	require.NoError(t, os.WriteFile(full, []byte("workbook"), 0644))

	p := newTestPortal(t, DefaultPortalConfig())
	p.export.exportAndWaitFunc = func(ctx context.Context, sessionID, key string, format port.ExportFormat) (*port.ExportResult, error) {
		if key != "7" {
			return nil, entity.ErrRecordNotFound
		}
		return &port.ExportResult{
			Path:        "drdotwo/L-7-job.xlsx",
			FullPath:    full,
			FileName:    "L-7.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		}, nil
	}
	id := p.auth.logIn()

	w := p.do(http.MethodGet, "/dashboard/records/7/export?format=xlsx", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "workbook", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "L-7.xlsx")
	assert.Equal(t, []string{"drdotwo/L-7-job.xlsx"}, p.export.discarded, "removed once sent")

	w = p.do(http.MethodGet, "/dashboard/records/9/export?format=xlsx", id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = p.do(http.MethodGet, "/dashboard/records/7/export?format=pdf", id, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitForm(t *testing.T) {
	form := url.Values{"subject": {"Seminar"}, "letterNo": {"GIA/7"}, "dateOpened": {"2024-01-15"}}

	t.Run("success", func(t *testing.T) {
		p := newTestPortal(t, DefaultPortalConfig())
		id := p.auth.logIn()

		w := p.do(http.MethodPost, "/form", id, form)
		require.Equal(t, http.StatusSeeOther, w.Code)

		body := p.do(http.MethodGet, "/form", id, nil).Body.String()
		assert.Contains(t, body, service.MsgFormSubmitted)
		assert.NotContains(t, body, `value="GIA/7"`, "draft is reset")
	})

	t.Run("failure keeps draft", func(t *testing.T) {
		p := newTestPortal(t, DefaultPortalConfig())
		p.entry.submitFunc = func(ctx context.Context, sessionID string) error {
			return &port.APIError{Status: 400, Message: "duplicate letter"}
		}
		id := p.auth.logIn()

		p.do(http.MethodPost, "/form", id, form)

		body := p.do(http.MethodGet, "/form", id, nil).Body.String()
		assert.Contains(t, body, "Error: duplicate letter")
		assert.Contains(t, body, `value="GIA/7"`)
	})
}

func TestCSRFProtection(t *testing.T) {
	cfg := DefaultPortalConfig()
	cfg.CSRFEnabled = true
	cfg.CSRFKey = []byte("0123456789abcdef0123456789abcdef")
	p := newTestPortal(t, cfg)

	w := p.do(http.MethodPost, "/login", "", url.Values{"username": {"a"}, "password": {"b"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = p.do(http.MethodGet, "/login", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="csrf_token"`)
}

func TestNewServerRejectsShortCSRFKey(t *testing.T) {
	cfg := DefaultPortalConfig()
	cfg.CSRFEnabled = true
	cfg.CSRFKey = []byte("short")

	_, err := NewServer(DefaultServerConfig(), cfg, Services{}, nil, mockLogger{})
	assert.Error(t, err)
}
