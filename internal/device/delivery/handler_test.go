package delivery

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"crm-backend/internal/device/domain"
	"crm-backend/internal/device/repository"
	"crm-backend/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndUnregister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, err := database.NewMemory()
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, &domain.DeviceToken{}))
	repo := repository.NewDeviceRepository(db)

	h := NewDeviceHandler(repo)
	r := gin.New()
	r.POST("/fcm/register", h.Register)
	r.DELETE("/fcm/:token", h.Unregister)

	req := httptest.NewRequest(http.MethodPost, "/fcm/register", strings.NewReader(`{"token":"abc","device_info":"Firefox"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	tokens, err := repo.Tokens()
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, tokens)

	req = httptest.NewRequest(http.MethodPost, "/fcm/register", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/fcm/abc", nil))
	require.Equal(t, http.StatusOK, w.Code)

	tokens, err = repo.Tokens()
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
