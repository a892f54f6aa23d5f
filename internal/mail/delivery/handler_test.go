package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	contactdomain "crm-backend/internal/contact/domain"
	"crm-backend/internal/mail/domain"
	"crm-backend/internal/mail/usecase"
	"crm-backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubMail struct {
	usecase.MailUsecase
	configured  bool
	gotState    string
	gotIssued   string
	gotCode     string
	syncResult  *usecase.SyncResult
	disconnects int
}

func (s *stubMail) Status() (*usecase.Status, error) {
	return &usecase.Status{Configured: s.configured, Connected: true, AccountEmail: "me@example.com"}, nil
}

func (s *stubMail) AuthURL() (string, string, error) {
	if !s.configured {
		return "", "", apperrors.NewUnavailable(apperrors.CodeGmailNotConfigured, "not configured")
	}
	return "https://accounts.example.com/auth", "signed-state", nil
}

func (s *stubMail) Callback(ctx context.Context, state, issuedState, code string) (*domain.Credential, error) {
	s.gotState, s.gotIssued, s.gotCode = state, issuedState, code
	if state != issuedState {
		return nil, apperrors.NewBadRequest(apperrors.CodeOAuthState, "Invalid OAuth state")
	}
	return &domain.Credential{AccountEmail: "me@example.com"}, nil
}

func (s *stubMail) Disconnect() error {
	s.disconnects++
	return nil
}

func (s *stubMail) Sync(ctx context.Context) (*usecase.SyncResult, error) {
	return s.syncResult, nil
}

func (s *stubMail) SendToContact(ctx context.Context, contact *contactdomain.Contact, subject, body string) (string, error) {
	return "", nil
}

func newRouter(stub *stubMail) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewMailHandler(stub, false, zap.NewNop())

	r := gin.New()
	r.GET("/gmail/status", h.Status)
	r.GET("/gmail/connect", h.Connect)
	r.GET("/gmail/oauth2callback", h.OAuthCallback)
	r.POST("/gmail/disconnect", h.Disconnect)
	r.POST("/gmail/sync", h.Sync)
	return r
}

func TestConnectSetsStateCookie(t *testing.T) {
	r := newRouter(&stubMail{configured: true})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gmail/connect", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://accounts.example.com/auth", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, stateCookie, cookies[0].Name)
	assert.Equal(t, "signed-state", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestConnectNotConfigured(t *testing.T) {
	r := newRouter(&stubMail{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gmail/connect", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeGmailNotConfigured, body["error"])
	assert.NotEmpty(t, body["warning"])
}

func TestOAuthCallback(t *testing.T) {
	stub := &stubMail{configured: true}
	r := newRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/gmail/oauth2callback?state=signed-state&code=abc", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "signed-state"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, "signed-state", stub.gotIssued)
	assert.Equal(t, "abc", stub.gotCode)
}

func TestOAuthCallbackWithoutCookie(t *testing.T) {
	stub := &stubMail{configured: true}
	r := newRouter(stub)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gmail/oauth2callback?state=signed-state&code=abc", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, stub.gotIssued)
}

func TestOAuthCallbackDenied(t *testing.T) {
	stub := &stubMail{configured: true}
	r := newRouter(stub)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gmail/oauth2callback?error=access_denied", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, stub.gotCode)
}

func TestSyncAndDisconnect(t *testing.T) {
	stub := &stubMail{
		configured: true,
		syncResult: &usecase.SyncResult{Stored: []*domain.Message{{MessageID: "a"}, {MessageID: "b"}}, Skipped: 3},
	}
	r := newRouter(stub)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/gmail/sync", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Synced 2 messages", body["message"])
	assert.Equal(t, float64(3), body["skipped"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/gmail/disconnect", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, stub.disconnects)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gmail/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "me@example.com")
}

func TestSyncMessage(t *testing.T) {
	assert.Equal(t, "Synced 1 message", syncMessage(1))
	assert.Equal(t, "Synced 0 messages", syncMessage(0))
}
