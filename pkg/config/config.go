package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultSecretKey = "dev-secret-key"

const defaultScopes = "https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/gmail.modify"

type Config struct {
	Port        string
	Env         string
	LogLevel    string
	CORSOrigins []string

	DatabaseURL        string
	SecretKey          string
	AccessPasswordHash string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	GoogleScopes       []string

	AIProvider    string
	GeminiAPIKey  string
	GeminiModel   string
	OllamaBaseURL string
	OllamaModel   string

	SenderName       string
	MailSyncLimit    int64
	MailSyncInterval time.Duration

	GoogleProjectID     string
	GooglePubSubTopic   string
	GoogleCredentials   string
	FirebaseCredentials string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	syncInterval := time.Duration(0)
	if v := os.Getenv("MAIL_SYNC_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			syncInterval = parsed
		}
	}

	syncLimit := int64(20)
	if v := os.Getenv("MAIL_SYNC_LIMIT"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			syncLimit = parsed
		}
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("APP_ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		CORSOrigins:         strings.Fields(getEnv("CORS_ORIGINS", "")),
		DatabaseURL:         getEnv("DATABASE_URL", "sqlite://instance/crm.sqlite3"),
		SecretKey:           getEnv("SECRET_KEY", defaultSecretKey),
		AccessPasswordHash:  getEnv("ACCESS_PASSWORD_HASH", ""),
		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:   getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/gmail/oauth2callback"),
		GoogleScopes:        strings.Fields(getEnv("GOOGLE_SCOPES", defaultScopes)),
		AIProvider:          getEnv("AI_PROVIDER", "auto"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", ""),
		OllamaModel:         getEnv("OLLAMA_MODEL", "llama3"),
		SenderName:          getEnv("SENDER_NAME", "Your Name"),
		MailSyncLimit:       syncLimit,
		MailSyncInterval:    syncInterval,
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:   getEnv("GOOGLE_PUBSUB_TOPIC", ""),
		GoogleCredentials:   getEnv("GOOGLE_CREDENTIALS", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
	}
}

// GmailConfigured reports whether the OAuth client is set up.
func (c *Config) GmailConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// TextGenerationConfigured reports whether any text-generation provider can be built.
func (c *Config) TextGenerationConfigured() bool {
	return c.GeminiAPIKey != "" || c.OllamaBaseURL != ""
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects settings that are only acceptable in development.
func (c *Config) Validate() error {
	if c.IsProduction() && (c.SecretKey == "" || c.SecretKey == defaultSecretKey) {
		return errors.New("SECRET_KEY must be set in production")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
