package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Razdnut/torna-a-casa/internal/cryptox"
	"github.com/Razdnut/torna-a-casa/internal/record"
)

// localStore is the fallback backend: a single JSON file holding envelope
// strings per day key and plain settings values, mirroring the layout the
// app used on hosts without a structured-storage engine.
type localStore struct {
	path string
	box  *cryptox.Box

	mu   sync.Mutex
	data localData
}

type localData struct {
	// Days maps day keys to envelope strings. Values written by old
	// versions may instead be plain record objects; those migrate to
	// envelopes on open.
	Days     map[string]json.RawMessage `json:"days"`
	Settings map[string]string          `json:"settings"`
}

func openLocal(path string, box *cryptox.Box) (*localStore, error) {
	s := &localStore{
		path: path,
		box:  box,
		data: localData{
			Days:     make(map[string]json.RawMessage),
			Settings: make(map[string]string),
		},
	}

	raw, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read fallback store: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("failed to decode fallback store: %w", err)
		}
		if s.data.Days == nil {
			s.data.Days = make(map[string]json.RawMessage)
		}
		if s.data.Settings == nil {
			s.data.Settings = make(map[string]string)
		}
	}

	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// migrate re-encrypts any day value not in the current envelope format.
// Unreadable values are skipped, not fatal.
func (s *localStore) migrate() error {
	changed := false
	for dayKey, raw := range s.data.Days {
		rec, needsRewrite, err := decodeLocalValue(raw, s.box)
		if err != nil || !needsRewrite {
			continue
		}
		encoded, err := s.encodeValue(rec)
		if err != nil {
			continue
		}
		s.data.Days[dayKey] = encoded
		changed = true
	}
	if changed {
		return s.flush()
	}
	return nil
}

// decodeLocalValue reads one stored day value: a current envelope, a
// retired v0 envelope, or a plain record object written before encryption.
func decodeLocalValue(raw json.RawMessage, box *cryptox.Box) (*record.DayRecord, bool, error) {
	var envelope string
	if err := json.Unmarshal(raw, &envelope); err == nil {
		return migrateRow(rawRow{Payload: envelope}, box)
	}

	rec, err := record.Unmarshal(raw)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (s *localStore) encodeValue(rec *record.DayRecord) (json.RawMessage, error) {
	data, err := record.Marshal(rec)
	if err != nil {
		return nil, err
	}
	envelope, err := s.box.Seal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope)
}

func (s *localStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create fallback directory: %w", err)
	}
	data, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("failed to encode fallback store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write fallback store: %w", err)
	}
	return nil
}

func (s *localStore) SaveDay(_ context.Context, dayKey string, rec *record.DayRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	encoded, err := s.encodeValue(rec)
	if err != nil {
		return err
	}
	s.data.Days[dayKey] = encoded
	return s.flush()
}

func (s *localStore) LoadDay(_ context.Context, dayKey string) (*record.DayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.data.Days[dayKey]
	if !ok {
		return nil, nil
	}
	rec, needsRewrite, err := decodeLocalValue(raw, s.box)
	if err != nil {
		return nil, fmt.Errorf("failed to load day %s: %w", dayKey, err)
	}
	if needsRewrite {
		if encoded, err := s.encodeValue(rec); err == nil {
			s.data.Days[dayKey] = encoded
			_ = s.flush()
		}
	}
	return rec, nil
}

func (s *localStore) ListDays(_ context.Context) ([]record.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.data.Days))
	for dayKey := range s.data.Days {
		keys = append(keys, dayKey)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	var entries []record.Entry
	changed := false
	for _, dayKey := range keys {
		rec, needsRewrite, err := decodeLocalValue(s.data.Days[dayKey], s.box)
		if err != nil {
			continue
		}
		if needsRewrite {
			if encoded, err := s.encodeValue(rec); err == nil {
				s.data.Days[dayKey] = encoded
				changed = true
			}
		}
		entries = append(entries, record.Entry{DayKey: dayKey, DayRecord: *rec})
	}
	if changed {
		_ = s.flush()
	}
	return entries, nil
}

func (s *localStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Days = make(map[string]json.RawMessage)
	s.data.Settings = make(map[string]string)
	return s.flush()
}

func (s *localStore) AutoSaveEnabled(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Settings[autoSaveKey] == "1", nil
}

func (s *localStore) SetAutoSaveEnabled(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value := "0"
	if enabled {
		value = "1"
	}
	s.data.Settings[autoSaveKey] = value
	return s.flush()
}

func (s *localStore) Close() error {
	return nil
}
