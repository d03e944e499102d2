package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/store/memory"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/store/sqlite"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/config"
)

func TestOpenMemory(t *testing.T) {
	s, err := Open(context.Background(), &config.Config{
		Storage: config.StorageConfig{Backend: config.BackendMemory},
	})
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &memory.Store{}, s)
}

func TestOpenSQLite(t *testing.T) {
	s, err := Open(context.Background(), &config.Config{
		Storage: config.StorageConfig{Backend: config.BackendSQLite},
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "index.db")},
	})
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &sqlite.Store{}, s)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{
		Storage: config.StorageConfig{Backend: "cassandra"},
	})
	assert.Error(t, err)
}
