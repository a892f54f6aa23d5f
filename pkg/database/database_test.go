package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSQLitePath(t *testing.T) {
	cases := map[string]struct {
		path string
		ok   bool
	}{
		"sqlite://instance/crm.sqlite3": {"instance/crm.sqlite3", true},
		"sqlite:///var/lib/crm.db":      {"/var/lib/crm.db", true},
		"sqlite://:memory:":             {":memory:", true},
		"sqlite://":                     {":memory:", true},
		"postgres://u:p@localhost/crm":  {"", false},
		"host=localhost dbname=crm":     {"", false},
	}

	for url, want := range cases {
		path, ok := sqlitePath(url)
		assert.Equal(t, want.ok, ok, url)
		assert.Equal(t, want.path, path, url)
	}
}

type widget struct {
	ID   string `gorm:"primaryKey"`
	Name string
}

func TestNewConnectionCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	url := "sqlite://" + filepath.Join(dir, "nested", "crm.sqlite3")

	db, err := NewConnection(url, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, Migrate(db, &widget{}))

	require.NoError(t, db.Create(&widget{ID: "w1", Name: "gear"}).Error)
	var got widget
	require.NoError(t, db.First(&got, "id = ?", "w1").Error)
	assert.Equal(t, "gear", got.Name)
}

func TestNewMemoryIsolated(t *testing.T) {
	a, err := NewMemory()
	require.NoError(t, err)
	b, err := NewMemory()
	require.NoError(t, err)

	require.NoError(t, Migrate(a, &widget{}))
	assert.True(t, a.Migrator().HasTable(&widget{}))
	assert.False(t, b.Migrator().HasTable(&widget{}))
}
