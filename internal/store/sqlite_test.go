package store

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"database/sql"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"

	"github.com/Razdnut/torna-a-casa/internal/cryptox"
	"github.com/Razdnut/torna-a-casa/internal/ledger"
	"github.com/Razdnut/torna-a-casa/internal/record"
)

func newTestSQLite(t *testing.T, dir string) *sqliteStore {
	t.Helper()
	s, err := openSQLite(context.Background(),
		filepath.Join(dir, "worklog.db"),
		filepath.Join(dir, "worklog_local.json"),
		cryptox.NewBox("test-secret"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord() *record.DayRecord {
	return &record.DayRecord{
		MorningIn: "07:30",
		LunchOut:  "12:00",
		LunchIn:   "12:30",
		FinalOut:  "16:00",
		Calculated: &ledger.Result{
			PredictedExit: "15:12", WorkedMinutes: 480, CreditMinutes: 48, LunchMinutesCounted: 30,
		},
		UpdatedAt: time.Date(2026, 8, 31, 16, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteSaveLoad(t *testing.T) {
	s := newTestSQLite(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.SaveDay(ctx, "2026-08-31", sampleRecord()))

	got, err := s.LoadDay(ctx, "2026-08-31")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sampleRecord(), got)
}

func TestSQLiteLoadMissingDay(t *testing.T) {
	s := newTestSQLite(t, t.TempDir())

	got, err := s.LoadDay(context.Background(), "2026-01-01")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteSaveReplacesDay(t *testing.T) {
	s := newTestSQLite(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.SaveDay(ctx, "2026-08-31", sampleRecord()))

	updated := sampleRecord()
	updated.FinalOut = "17:00"
	require.NoError(t, s.SaveDay(ctx, "2026-08-31", updated))

	got, err := s.LoadDay(ctx, "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, "17:00", got.FinalOut)
}

func TestSQLiteListDaysDescending(t *testing.T) {
	s := newTestSQLite(t, t.TempDir())
	ctx := context.Background()

	for _, dayKey := range []string{"2026-08-29", "2026-08-31", "2026-08-30"} {
		require.NoError(t, s.SaveDay(ctx, dayKey, sampleRecord()))
	}

	entries, err := s.ListDays(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "2026-08-31", entries[0].DayKey)
	assert.Equal(t, "2026-08-30", entries[1].DayKey)
	assert.Equal(t, "2026-08-29", entries[2].DayKey)
}

func TestSQLiteStoresOnlyEnvelopes(t *testing.T) {
	dir := t.TempDir()
	s := newTestSQLite(t, dir)
	ctx := context.Background()

	require.NoError(t, s.SaveDay(ctx, "2026-08-31", sampleRecord()))

	var morningIn, payload string
	err := s.db.QueryRow(
		`SELECT morning_in, encrypted_payload FROM work_days WHERE day_key = ?`,
		"2026-08-31").Scan(&morningIn, &payload)
	require.NoError(t, err)
	assert.Empty(t, morningIn)
	assert.True(t, cryptox.IsEnvelope(payload))
}

func TestSQLiteClearAll(t *testing.T) {
	s := newTestSQLite(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.SaveDay(ctx, "2026-08-31", sampleRecord()))
	require.NoError(t, s.SetAutoSaveEnabled(ctx, true))

	require.NoError(t, s.ClearAll(ctx))

	entries, err := s.ListDays(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	enabled, err := s.AutoSaveEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestSQLiteAutoSave(t *testing.T) {
	s := newTestSQLite(t, t.TempDir())
	ctx := context.Background()

	enabled, err := s.AutoSaveEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, s.SetAutoSaveEnabled(ctx, true))
	enabled, err = s.AutoSaveEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, s.SetAutoSaveEnabled(ctx, false))
	enabled, err = s.AutoSaveEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)
}

// seedLegacyDB creates a database in the pre-encryption schema: plain
// columns, no envelope column.
func seedLegacyDB(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE work_days (
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
		updated_at TEXT NOT NULL
	)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO work_days
		(day_key, morning_in, lunch_out, lunch_in, final_out, pause_no_exit, used_permit,
		 permit_out, permit_in, calculated_json, updated_at)
		VALUES ('2025-03-10', '08:00', '', '', '15:30', 0, 0, '', '',
		 '{"workedMinutes":420,"debtMinutes":12,"lunchMinutesCounted":30}',
		 '2025-03-10T15:30:00Z')`)
	require.NoError(t, err)
}

func TestSQLiteMigratesLegacyRows(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "worklog.db")
	seedLegacyDB(t, dbPath)

	s := newTestSQLite(t, dir)
	ctx := context.Background()

	rec, err := s.LoadDay(ctx, "2025-03-10")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "08:00", rec.MorningIn)
	assert.Equal(t, "15:30", rec.FinalOut)
	require.NotNil(t, rec.Calculated)
	assert.Equal(t, 420.0, rec.Calculated.WorkedMinutes)
	assert.Equal(t, 12.0, rec.Calculated.DebtMinutes)
	assert.Equal(t, time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC), rec.UpdatedAt)

	// The row was rewritten as an envelope with the plain columns blanked.
	var morningIn, payload string
	err = s.db.QueryRow(
		`SELECT morning_in, encrypted_payload FROM work_days WHERE day_key = ?`,
		"2025-03-10").Scan(&morningIn, &payload)
	require.NoError(t, err)
	assert.Empty(t, morningIn)
	assert.True(t, cryptox.IsEnvelope(payload))
}

func TestSQLiteMigrationIdempotent(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "worklog.db")
	seedLegacyDB(t, dbPath)

	s := newTestSQLite(t, dir)
	var first string
	require.NoError(t, s.db.QueryRow(
		`SELECT encrypted_payload FROM work_days WHERE day_key = '2025-03-10'`).Scan(&first))
	assert.True(t, cryptox.IsEnvelope(first))
	require.NoError(t, s.Close())

	// Reopening must leave already-migrated rows untouched.
	s2 := newTestSQLite(t, dir)
	var second string
	require.NoError(t, s2.db.QueryRow(
		`SELECT encrypted_payload FROM work_days WHERE day_key = '2025-03-10'`).Scan(&second))
	assert.Equal(t, first, second)

	rec, err := s2.LoadDay(context.Background(), "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, "08:00", rec.MorningIn)
}

// sealV0Envelope builds an envelope in the retired v0 format: PBKDF2 over
// SHA-1 with 10,000 iterations and the old salt.
func sealV0Envelope(t *testing.T, secret string, plaintext []byte) string {
	t.Helper()
	key := pbkdf2.Key([]byte(secret), []byte("worklog:v0"), 10000, 32, sha1.New)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	aead, err := cipher.NewGCM(block)
	require.NoError(t, err)

	nonce := make([]byte, aead.NonceSize())
	ct := aead.Seal(nil, nonce, plaintext, nil)
	enc := base64.StdEncoding
	return strings.Join([]string{"enc", "v0", enc.EncodeToString(nonce), enc.EncodeToString(ct)}, ":")
}

func TestSQLiteMigratesV0Envelopes(t *testing.T) {
	dir := t.TempDir()
	s := newTestSQLite(t, dir)

	payload := sealV0Envelope(t, "test-secret",
		[]byte(`{"morningIn":"07:30","finalOut":"15:12","updatedAt":"2025-06-02T15:12:00Z"}`))
	_, err := s.db.Exec(`INSERT INTO work_days (day_key, updated_at, encrypted_payload)
		VALUES ('2025-06-02', '2025-06-02T15:12:00Z', ?)`, payload)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// The reopen pass rewrites v0 rows under the current scheme.
	s2 := newTestSQLite(t, dir)
	var rewritten string
	require.NoError(t, s2.db.QueryRow(
		`SELECT encrypted_payload FROM work_days WHERE day_key = '2025-06-02'`).Scan(&rewritten))
	assert.True(t, cryptox.IsEnvelope(rewritten))
	assert.False(t, cryptox.IsLegacyEnvelope(rewritten))

	rec, err := s2.LoadDay(context.Background(), "2025-06-02")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "07:30", rec.MorningIn)
	assert.Equal(t, "15:12", rec.FinalOut)
}

func TestSQLiteListSkipsUndecryptableRows(t *testing.T) {
	s := newTestSQLite(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.SaveDay(ctx, "2026-08-31", sampleRecord()))

	// A row sealed under a different secret fails alone.
	other, err := cryptox.NewBox("other-secret").Seal([]byte(`{"morningIn":"09:00"}`))
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO work_days (day_key, updated_at, encrypted_payload)
		VALUES ('2026-08-30', '2026-08-30T16:00:00Z', ?)`, other)
	require.NoError(t, err)

	entries, err := s.ListDays(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2026-08-31", entries[0].DayKey)

	_, err = s.LoadDay(ctx, "2026-08-30")
	assert.ErrorIs(t, err, cryptox.ErrDecryptFailed)
}
