package delivery

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	contactdomain "crm-backend/internal/contact/domain"
	contactrepo "crm-backend/internal/contact/repository"
	maildomain "crm-backend/internal/mail/domain"
	mailrepo "crm-backend/internal/mail/repository"
	"crm-backend/internal/suggestion/domain"
	"crm-backend/internal/suggestion/repository"
	"crm-backend/internal/suggestion/usecase"
	"crm-backend/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noopScheduler struct {
	enqueued int
}

func (s *noopScheduler) Enqueue(record *domain.ScheduledEmail) error {
	s.enqueued++
	return nil
}

func (s *noopScheduler) Cancel(ids ...string) {}

func setup(t *testing.T) (*gin.Engine, *contactdomain.Contact, *noopScheduler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewMemory()
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db,
		&contactdomain.Contact{}, &contactdomain.Action{},
		&maildomain.Message{},
		&domain.Suggestion{}, &domain.ScheduledEmail{},
	))

	contacts := contactrepo.NewContactRepository(db)
	contact := &contactdomain.Contact{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, contacts.Create(contact))

	sched := &noopScheduler{}
	uc := usecase.NewSuggestionUsecase(
		repository.NewSuggestionRepository(db),
		repository.NewScheduledEmailRepository(db),
		contacts,
		mailrepo.NewMessageRepository(db),
		sched,
		nil,
		"Sam",
		zap.NewNop(),
	)
	h := NewSuggestionHandler(uc)

	r := gin.New()
	r.GET("/emails/suggestions", h.Inbox)
	r.POST("/emails/suggestions", h.Review)
	r.POST("/emails/suggestions/generate/:contact_id", h.Generate)
	r.POST("/emails/suggestions/refresh/:suggestion_id", h.Refresh)
	r.GET("/emails/scheduled", h.Scheduled)
	return r, contact, sched
}

func serve(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func generate(t *testing.T, r http.Handler, contactID string) map[string]interface{} {
	t.Helper()
	w, body := serve(r, httptest.NewRequest(http.MethodPost, "/emails/suggestions/generate/"+contactID, nil))
	require.Equal(t, http.StatusCreated, w.Code)
	return body["suggestion"].(map[string]interface{})
}

func reviewForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/emails/suggestions", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestGenerateAndInbox(t *testing.T) {
	r, contact, _ := setup(t)

	s := generate(t, r, contact.ID)
	assert.Equal(t, "Checking in with Ada", s["subject"])
	assert.Equal(t, "created", s["status"])

	w, body := serve(r, httptest.NewRequest(http.MethodGet, "/emails/suggestions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	entries := body["suggestions"].([]interface{})
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]interface{})
	assert.Equal(t, "Ada", entry["contact_name"])
	assert.Equal(t, "approved", entry["default_decision"])
}

func TestGenerateUnknownContact(t *testing.T) {
	r, _, _ := setup(t)
	w, _ := serve(r, httptest.NewRequest(http.MethodPost, "/emails/suggestions/generate/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewApproveForm(t *testing.T) {
	r, contact, sched := setup(t)
	s := generate(t, r, contact.ID)

	w, body := serve(r, reviewForm(url.Values{
		"suggestion_id":     {s["id"].(string)},
		"subject":           {"Edited"},
		"body":              {"Edited body"},
		"suggested_send_at": {"2030-01-02T15:04"},
		"status":            {"approved"},
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Suggestion approved and scheduled", body["message"])
	assert.Equal(t, 1, sched.enqueued)

	updated := body["suggestion"].(map[string]interface{})
	assert.Equal(t, "scheduled", updated["status"])
	assert.Equal(t, "2030-01-02T15:04:00Z", updated["scheduled_for"])

	w, body = serve(r, httptest.NewRequest(http.MethodGet, "/emails/scheduled", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["scheduled"], 1)
}

func TestReviewNeedsReview(t *testing.T) {
	r, contact, sched := setup(t)
	s := generate(t, r, contact.ID)

	w, body := serve(r, reviewForm(url.Values{
		"suggestion_id": {s["id"].(string)},
		"subject":       {"Subject"},
		"body":          {"Body"},
		"status":        {"needs_review"},
	}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Suggestion marked for review", body["message"])
	assert.Zero(t, sched.enqueued)
}

func TestReviewValidation(t *testing.T) {
	r, contact, _ := setup(t)
	s := generate(t, r, contact.ID)

	w, _ := serve(r, reviewForm(url.Values{"subject": {"x"}, "body": {"y"}, "status": {"approved"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing suggestion id")

	w, _ = serve(r, reviewForm(url.Values{
		"suggestion_id": {s["id"].(string)}, "subject": {"x"}, "body": {"y"},
		"status": {"approved"}, "suggested_send_at": {"tomorrow"},
	}))
	assert.Equal(t, http.StatusBadRequest, w.Code, "bad send time")

	w, _ = serve(r, reviewForm(url.Values{
		"suggestion_id": {s["id"].(string)}, "subject": {""}, "body": {"y"}, "status": {"approved"},
	}))
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty subject")
}

func TestRefresh(t *testing.T) {
	r, contact, _ := setup(t)
	s := generate(t, r, contact.ID)

	w, body := serve(r, httptest.NewRequest(http.MethodPost, "/emails/suggestions/refresh/"+s["id"].(string), nil))
	require.Equal(t, http.StatusOK, w.Code)
	fresh := body["suggestion"].(map[string]interface{})
	assert.NotEqual(t, s["id"], fresh["id"])

	w, _ = serve(r, httptest.NewRequest(http.MethodPost, "/emails/suggestions/refresh/"+s["id"].(string), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParseSendAt(t *testing.T) {
	got, err := parseSendAt("2024-03-04T10:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04T08:30:00Z", got.Format("2006-01-02T15:04:05Z07:00"))

	got, err = parseSendAt("  ")
	require.NoError(t, err)
	assert.Nil(t, got)
}
