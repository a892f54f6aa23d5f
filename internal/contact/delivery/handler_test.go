package delivery

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"crm-backend/internal/contact/domain"
	"crm-backend/internal/contact/repository"
	"crm-backend/internal/contact/usecase"
	"crm-backend/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewMemory()
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, &domain.Contact{}, &domain.Action{}))

	uc := usecase.NewContactUsecase(repository.NewContactRepository(db), repository.NewActionRepository(db), zap.NewNop())
	h := NewContactHandler(uc)
	h.SetMailStatus(func() (bool, string) { return true, "me@example.com" })

	r := gin.New()
	r.GET("/", h.Dashboard)
	r.POST("/contacts", h.CreateContact)
	r.GET("/contacts/:id", h.GetContact)
	r.PUT("/contacts/:id", h.UpdateContact)
	r.DELETE("/contacts/:id", h.DeleteContact)
	r.POST("/contacts/upload", h.UploadContacts)
	r.POST("/actions/new/:contact_id", h.AddAction)
	r.POST("/actions/:id/complete", h.CompleteAction)
	return r
}

func do(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func jsonRequest(method, path string, payload interface{}) *http.Request {
	b, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCreateAndCompleteFlow(t *testing.T) {
	r := newRouter(t)

	w, body := do(r, jsonRequest(http.MethodPost, "/contacts", map[string]string{
		"name":        "Ada",
		"email":       "ada@example.com",
		"next_action": "Send proposal",
		"due_date":    "2024-03-04",
	}))
	require.Equal(t, http.StatusCreated, w.Code)
	contact := body["contact"].(map[string]interface{})
	actions := contact["actions"].([]interface{})
	require.Len(t, actions, 1)
	actionID := actions[0].(map[string]interface{})["id"].(string)

	form := url.Values{"completion_notes": {"sent"}, "new_title": {"Check reply"}, "new_due_date": {"2024-03-11"}}
	req := httptest.NewRequest(http.MethodPost, "/actions/"+actionID+"/complete", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w, body = do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Action completed and next action scheduled", body["message"])

	req = httptest.NewRequest(http.MethodPost, "/actions/"+actionID+"/complete", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w, body = do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Action already completed", body["message"])

	w, body = do(r, httptest.NewRequest(http.MethodGet, "/contacts/"+contact["id"].(string), nil))
	require.Equal(t, http.StatusOK, w.Code)
	next := body["next_action"].(map[string]interface{})
	assert.Equal(t, "Check reply", next["title"])
}

func TestCreateContactValidation(t *testing.T) {
	r := newRouter(t)

	w, body := do(r, jsonRequest(http.MethodPost, "/contacts", map[string]string{"email": "x@example.com"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", body["error"])

	w, _ = do(r, jsonRequest(http.MethodPost, "/contacts", map[string]string{"name": "Ada", "due_date": "soon", "next_action": "x"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetContactNotFound(t *testing.T) {
	r := newRouter(t)
	w, _ := do(r, httptest.NewRequest(http.MethodGet, "/contacts/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadAndDashboard(t *testing.T) {
	r := newRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "contacts.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("name,email,next_action,due_date\nAda,ada@example.com,Call,2024-01-02\n,skip@example.com,,\nBob,bob@example.com,,\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/contacts/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, body := do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["imported"])

	w, body = do(r, httptest.NewRequest(http.MethodGet, "/?q=ada", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["contacts"], 1)
	assert.Len(t, body["upcoming_actions"], 1)
	assert.Equal(t, true, body["gmail"].(map[string]interface{})["connected"])
}

func TestUploadRequiresFile(t *testing.T) {
	r := newRouter(t)
	w, _ := do(r, httptest.NewRequest(http.MethodPost, "/contacts/upload", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteContact(t *testing.T) {
	r := newRouter(t)

	_, body := do(r, jsonRequest(http.MethodPost, "/contacts", map[string]string{"name": "Ada"}))
	id := body["contact"].(map[string]interface{})["id"].(string)

	w, _ := do(r, httptest.NewRequest(http.MethodDelete, "/contacts/"+id, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(r, httptest.NewRequest(http.MethodGet, "/contacts/"+id, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
