package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const memoryPath = ":memory:"

// NewConnection opens the database named by databaseURL. sqlite:// URLs open
// a local file (parent directory created on demand), anything else is handed
// to the postgres driver as a DSN.
func NewConnection(databaseURL string, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	if path, ok := sqlitePath(databaseURL); ok {
		return openSQLite(path, gormCfg)
	}

	db, err := gorm.Open(postgres.Open(databaseURL), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// NewMemory opens a private in-memory sqlite database.
func NewMemory() (*gorm.DB, error) {
	return openSQLite(memoryPath, &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
}

// Migrate creates or updates tables for the given models.
func Migrate(db *gorm.DB, models ...interface{}) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func openSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	dsn := path
	if path != memoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = path + "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; an in-memory database only exists on its own connection
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func sqlitePath(databaseURL string) (string, bool) {
	for _, prefix := range []string{"sqlite://", "sqlite:"} {
		if strings.HasPrefix(databaseURL, prefix) {
			path := strings.TrimPrefix(databaseURL, prefix)
			if path == "" {
				path = memoryPath
			}
			return path, true
		}
	}
	return "", false
}
