package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Razdnut/torna-a-casa/internal/cryptox"
)

func TestOpenPrefersSQLite(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(context.Background(), Options{
		DatabasePath: filepath.Join(dir, "worklog.db"),
		Box:          cryptox.NewBox("test-secret"),
	})
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.(*sqliteStore)
	assert.True(t, ok)
}

func TestOpenFallsBackToLocal(t *testing.T) {
	dir := t.TempDir()

	// A regular file where the data directory should go makes the native
	// backend unopenable.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	s, err := Open(context.Background(), Options{
		DatabasePath: filepath.Join(blocker, "worklog.db"),
		FallbackPath: filepath.Join(dir, "worklog_local.json"),
		Box:          cryptox.NewBox("test-secret"),
	})
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.(*localStore)
	require.True(t, ok)

	ctx := context.Background()
	require.NoError(t, s.SaveDay(ctx, "2026-08-31", sampleRecord()))
	got, err := s.LoadDay(ctx, "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, sampleRecord(), got)
}

func TestOpenPurgesFallbackWhenSQLiteWorks(t *testing.T) {
	dir := t.TempDir()
	fallback := filepath.Join(dir, "worklog_local.json")
	require.NoError(t, os.WriteFile(fallback, []byte(`{"days":{},"settings":{}}`), 0o600))

	s, err := Open(context.Background(), Options{
		DatabasePath: filepath.Join(dir, "worklog.db"),
		FallbackPath: fallback,
		Box:          cryptox.NewBox("test-secret"),
	})
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(fallback)
	assert.True(t, os.IsNotExist(err))
}
