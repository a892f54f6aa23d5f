package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OLLAMA_BASE_URL", "")
	t.Setenv("MAIL_SYNC_LIMIT", "")
	t.Setenv("MAIL_SYNC_INTERVAL", "")

	cfg := Load()

	assert.Equal(t, "sqlite://instance/crm.sqlite3", cfg.DatabaseURL)
	assert.Equal(t, int64(20), cfg.MailSyncLimit)
	assert.Equal(t, time.Duration(0), cfg.MailSyncInterval)
	assert.Len(t, cfg.GoogleScopes, 2)
	assert.False(t, cfg.GmailConfigured())
	assert.False(t, cfg.TextGenerationConfigured())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("MAIL_SYNC_LIMIT", "50")
	t.Setenv("MAIL_SYNC_INTERVAL", "5m")
	t.Setenv("MAIL_SYNC_LIMIT", "bogus")

	cfg := Load()

	assert.True(t, cfg.GmailConfigured())
	assert.True(t, cfg.TextGenerationConfigured())
	assert.Equal(t, 5*time.Minute, cfg.MailSyncInterval)
	assert.Equal(t, int64(20), cfg.MailSyncLimit, "invalid limit keeps the default")
}

func TestValidateRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SECRET_KEY", "")
	assert.Error(t, Load().Validate())

	t.Setenv("SECRET_KEY", "dev-secret-key")
	assert.Error(t, Load().Validate())

	t.Setenv("SECRET_KEY", "a-real-secret")
	assert.NoError(t, Load().Validate())

	t.Setenv("APP_ENV", "development")
	t.Setenv("SECRET_KEY", "")
	assert.NoError(t, Load().Validate())
}
