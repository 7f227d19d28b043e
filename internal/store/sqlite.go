package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Razdnut/torna-a-casa/internal/cryptox"
	"github.com/Razdnut/torna-a-casa/internal/record"
)

const selectDayColumns = `day_key, morning_in, lunch_out, lunch_in, final_out,
	pause_no_exit, used_permit, permit_out, permit_in,
	calculated_json, updated_at, encrypted_payload`

// sqliteStore is the native structured-storage backend. One row per day
// key; the legacy plain columns are kept for backward read-compatibility
// and blanked once a row carries a current envelope.
type sqliteStore struct {
	db           *sql.DB
	box          *cryptox.Box
	fallbackPath string
}

func openSQLite(ctx context.Context, path, fallbackPath string, box *cryptox.Box) (*sqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s := &sqliteStore{db: db, box: box, fallbackPath: fallbackPath}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) createSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS work_days (
			day_key TEXT PRIMARY KEY,
			morning_in TEXT,
			lunch_out TEXT,
			lunch_in TEXT,
			final_out TEXT,
			pause_no_exit INTEGER NOT NULL DEFAULT 0,
			used_permit INTEGER NOT NULL DEFAULT 0,
			permit_out TEXT,
			permit_in TEXT,
			calculated_json TEXT,
			updated_at TEXT NOT NULL,
			encrypted_payload TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_work_days_updated_at ON work_days(updated_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// migrate is idempotent and runs on every open: it adds the envelope
// column to stores that predate it, then rewrites every row lacking a
// current-format envelope. Unreadable rows are skipped, not fatal; they
// are left in place for a future pass.
func (s *sqliteStore) migrate(ctx context.Context) error {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('work_days') WHERE name = 'encrypted_payload'`,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}
	if n == 0 {
		if _, err := s.db.ExecContext(ctx, `ALTER TABLE work_days ADD COLUMN encrypted_payload TEXT`); err != nil {
			return fmt.Errorf("failed to add envelope column: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+selectDayColumns+` FROM work_days`)
	if err != nil {
		return fmt.Errorf("failed to scan for legacy rows: %w", err)
	}
	raws, err := scanRawRows(rows)
	if err != nil {
		return err
	}

	for _, raw := range raws {
		if cryptox.IsEnvelope(raw.Payload) {
			continue
		}
		rec, _, err := migrateRow(raw, s.box)
		if err != nil {
			continue
		}
		if err := s.writeEnvelope(ctx, raw.DayKey, rec); err != nil {
			continue
		}
	}
	return nil
}

func scanRawRows(rows *sql.Rows) ([]rawRow, error) {
	defer rows.Close()

	var result []rawRow
	for rows.Next() {
		raw, err := scanRawRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, raw)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRawRow(row rowScanner) (rawRow, error) {
	var raw rawRow
	var morningIn, lunchOut, lunchIn, finalOut sql.NullString
	var permitOut, permitIn, calculated, payload sql.NullString
	var pauseNoExit, usedPermit int

	err := row.Scan(&raw.DayKey, &morningIn, &lunchOut, &lunchIn, &finalOut,
		&pauseNoExit, &usedPermit, &permitOut, &permitIn,
		&calculated, &raw.UpdatedAt, &payload)
	if err != nil {
		return rawRow{}, err
	}

	raw.MorningIn = morningIn.String
	raw.LunchOut = lunchOut.String
	raw.LunchIn = lunchIn.String
	raw.FinalOut = finalOut.String
	raw.PauseNoExit = pauseNoExit == 1
	raw.UsedPermit = usedPermit == 1
	raw.PermitOut = permitOut.String
	raw.PermitIn = permitIn.String
	raw.CalculatedJSON = calculated.String
	raw.Payload = payload.String
	return raw, nil
}

// writeEnvelope upserts a day as a current-format envelope and blanks the
// legacy plain columns.
func (s *sqliteStore) writeEnvelope(ctx context.Context, dayKey string, rec *record.DayRecord) error {
	data, err := record.Marshal(rec)
	if err != nil {
		return err
	}
	envelope, err := s.box.Seal(data)
	if err != nil {
		return err
	}

	query := `INSERT INTO work_days (day_key, morning_in, lunch_out, lunch_in, final_out,
			pause_no_exit, used_permit, permit_out, permit_in,
			calculated_json, updated_at, encrypted_payload)
		VALUES (?, '', '', '', '', 0, 0, '', '', NULL, ?, ?)
		ON CONFLICT(day_key) DO UPDATE SET
			morning_in = '',
			lunch_out = '',
			lunch_in = '',
			final_out = '',
			pause_no_exit = 0,
			used_permit = 0,
			permit_out = '',
			permit_in = '',
			calculated_json = NULL,
			updated_at = excluded.updated_at,
			encrypted_payload = excluded.encrypted_payload`
	_, err = s.db.ExecContext(ctx, query, dayKey, rec.UpdatedAt.Format(time.RFC3339), envelope)
	if err != nil {
		return fmt.Errorf("failed to upsert day %s: %w", dayKey, err)
	}
	return nil
}

func (s *sqliteStore) SaveDay(ctx context.Context, dayKey string, rec *record.DayRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	return s.writeEnvelope(ctx, dayKey, rec)
}

func (s *sqliteStore) LoadDay(ctx context.Context, dayKey string) (*record.DayRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectDayColumns+` FROM work_days WHERE day_key = ?`, dayKey)

	raw, err := scanRawRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec, needsRewrite, err := migrateRow(raw, s.box)
	if err != nil {
		return nil, fmt.Errorf("failed to load day %s: %w", dayKey, err)
	}
	if needsRewrite {
		_ = s.writeEnvelope(ctx, dayKey, rec)
	}
	return rec, nil
}

func (s *sqliteStore) ListDays(ctx context.Context) ([]record.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectDayColumns+` FROM work_days ORDER BY day_key DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list days: %w", err)
	}
	raws, err := scanRawRows(rows)
	if err != nil {
		return nil, err
	}

	var entries []record.Entry
	for _, raw := range raws {
		rec, needsRewrite, err := migrateRow(raw, s.box)
		if err != nil {
			// An undecryptable row fails on its own; it never aborts the listing.
			continue
		}
		if needsRewrite {
			_ = s.writeEnvelope(ctx, raw.DayKey, rec)
		}
		entries = append(entries, record.Entry{DayKey: raw.DayKey, DayRecord: *rec})
	}
	return entries, nil
}

func (s *sqliteStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM work_days`); err != nil {
		return fmt.Errorf("failed to clear days: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_settings`); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	removeFallbackFile(s.fallbackPath)
	return nil
}

func (s *sqliteStore) AutoSaveEnabled(ctx context.Context) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM app_settings WHERE key = ?`, autoSaveKey).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value == "1", nil
}

func (s *sqliteStore) SetAutoSaveEnabled(ctx context.Context, enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, autoSaveKey, value)
	if err != nil {
		return fmt.Errorf("failed to set auto-save: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
