// Package store provides durable, transparently-encrypted storage of work
// days keyed by calendar day, plus the auto-save settings flag. It selects
// between the native sqlite backend and a JSON-file fallback once per
// process and migrates legacy-format data in place on every open.
package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Razdnut/torna-a-casa/internal/cryptox"
	"github.com/Razdnut/torna-a-casa/internal/record"
)

const autoSaveKey = "auto_save"

// Store is the storage surface exposed to the rest of the application.
// Both backends encrypt day records at rest; settings stay plain.
// Concurrent saves to the same day key are last-write-wins.
type Store interface {
	// SaveDay upserts one day's record, stamping UpdatedAt if unset.
	SaveDay(ctx context.Context, dayKey string, rec *record.DayRecord) error

	// LoadDay returns the record for the given day, or nil if none was
	// ever saved.
	LoadDay(ctx context.Context, dayKey string) (*record.DayRecord, error)

	// ListDays returns all records ordered by day key descending.
	ListDays(ctx context.Context) ([]record.Entry, error)

	// ClearAll removes every record and setting from the active backend
	// and any residual fallback storage.
	ClearAll(ctx context.Context) error

	AutoSaveEnabled(ctx context.Context) (bool, error)
	SetAutoSaveEnabled(ctx context.Context, enabled bool) error

	Close() error
}

// Options configures backend selection.
type Options struct {
	// DatabasePath is the sqlite database location.
	DatabasePath string

	// FallbackPath is the JSON fallback file. Defaults to
	// worklog_local.json next to the database.
	FallbackPath string

	// Box encrypts and decrypts day records.
	Box *cryptox.Box
}

// Open probes for the native sqlite backend and falls back to the
// JSON-file store when it cannot be opened. The probe, schema creation and
// migration run once here; no per-call branching happens afterwards. Once
// the native backend has migrated, any parallel fallback data is purged so
// exactly one backend is authoritative.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.FallbackPath == "" {
		opts.FallbackPath = filepath.Join(filepath.Dir(opts.DatabasePath), "worklog_local.json")
	}

	s, err := openSQLite(ctx, opts.DatabasePath, opts.FallbackPath, opts.Box)
	if err == nil {
		removeFallbackFile(opts.FallbackPath)
		return s, nil
	}

	return openLocal(opts.FallbackPath, opts.Box)
}

func removeFallbackFile(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
