package store

import (
	"encoding/json"
	"time"

	"github.com/Razdnut/torna-a-casa/internal/cryptox"
	"github.com/Razdnut/torna-a-casa/internal/ledger"
	"github.com/Razdnut/torna-a-casa/internal/record"
)

// rawRow is the backend-independent shape of one stored day before format
// detection: the current envelope plus the legacy plain columns kept for
// backward read-compatibility.
type rawRow struct {
	DayKey         string
	MorningIn      string
	LunchOut       string
	LunchIn        string
	FinalOut       string
	PauseNoExit    bool
	UsedPermit     bool
	PermitOut      string
	PermitIn       string
	CalculatedJSON string
	UpdatedAt      string
	Payload        string
}

// migrateRow decodes a stored day in whatever format it is found:
// current envelope, retired v0 envelope, or plain legacy columns. The
// second return value reports whether the row needs rewriting in the
// current envelope format. Every read path calls this, so a legacy row is
// re-persisted no matter which operation touched it first.
func migrateRow(row rawRow, box *cryptox.Box) (*record.DayRecord, bool, error) {
	if cryptox.IsEnvelope(row.Payload) {
		data, err := box.Open(row.Payload)
		if err != nil {
			return nil, false, err
		}
		rec, err := record.Unmarshal(data)
		if err != nil {
			return nil, false, err
		}
		return rec, false, nil
	}

	if cryptox.IsLegacyEnvelope(row.Payload) {
		data, err := box.OpenLegacy(row.Payload)
		if err != nil {
			return nil, false, err
		}
		rec, err := record.Unmarshal(data)
		if err != nil {
			return nil, false, err
		}
		return rec, true, nil
	}

	rec := &record.DayRecord{
		MorningIn:   row.MorningIn,
		LunchOut:    row.LunchOut,
		LunchIn:     row.LunchIn,
		FinalOut:    row.FinalOut,
		PauseNoExit: row.PauseNoExit,
		UsedPermit:  row.UsedPermit,
		PermitOut:   row.PermitOut,
		PermitIn:    row.PermitIn,
		UpdatedAt:   parseUpdatedAt(row.UpdatedAt),
	}
	if row.CalculatedJSON != "" {
		var res ledger.Result
		if err := json.Unmarshal([]byte(row.CalculatedJSON), &res); err == nil {
			rec.Calculated = &res
		}
	}
	return rec, true, nil
}

func parseUpdatedAt(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now().UTC()
}
