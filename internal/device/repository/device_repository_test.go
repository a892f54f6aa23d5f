package repository

import (
	"testing"

	"crm-backend/internal/device/domain"
	"crm-backend/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceRepository(t *testing.T) {
	db, err := database.NewMemory()
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, &domain.DeviceToken{}))
	repo := NewDeviceRepository(db)

	require.NoError(t, repo.Save("token-a", "Firefox"))
	require.NoError(t, repo.Save("token-b", "Chrome"))
	require.NoError(t, repo.Save("token-a", "Firefox 128"))

	tokens, err := repo.Tokens()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"token-a", "token-b"}, tokens)

	var device domain.DeviceToken
	require.NoError(t, db.Where("token = ?", "token-a").First(&device).Error)
	assert.Equal(t, "Firefox 128", device.DeviceInfo)

	require.NoError(t, repo.Delete("token-a", "unknown"))
	require.NoError(t, repo.Delete())
	tokens, err = repo.Tokens()
	require.NoError(t, err)
	assert.Equal(t, []string{"token-b"}, tokens)
}
