// Package record defines the persisted shape of one work day and its JSON
// codec. The codec is independent of the storage backend: both the sqlite
// and the fallback store persist the same serialized form inside an
// encrypted envelope.
package record

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Razdnut/torna-a-casa/internal/ledger"
)

// DayRecord is the persisted unit for one day: the raw input fields plus
// the last computed result. Records are replaced whole on every save.
type DayRecord struct {
	MorningIn   string           `json:"morningIn"`
	LunchOut    string           `json:"lunchOut"`
	LunchIn     string           `json:"lunchIn"`
	FinalOut    string           `json:"finalOut"`
	PauseNoExit bool             `json:"pauseNoExit"`
	UsedPermit  bool             `json:"usedPermit"`
	PermitOut   string           `json:"permitOut"`
	PermitIn    string           `json:"permitIn"`
	Extra       []ledger.Segment `json:"extraSegments,omitempty"`
	Calculated  *ledger.Result   `json:"calculated"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Entry is a DayRecord together with the day key it is stored under.
type Entry struct {
	DayKey string `json:"dayKey"`
	DayRecord
}

// Input bridges the stored fields to a calculator input.
func (r *DayRecord) Input() ledger.Input {
	return ledger.Input{
		MorningIn:   r.MorningIn,
		LunchOut:    r.LunchOut,
		LunchIn:     r.LunchIn,
		FinalOut:    r.FinalOut,
		PauseNoExit: r.PauseNoExit,
		UsedPermit:  r.UsedPermit,
		PermitOut:   r.PermitOut,
		PermitIn:    r.PermitIn,
		Extra:       r.Extra,
	}
}

// Marshal serializes a record for storage.
func Marshal(r *DayRecord) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode day record: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a record previously produced by Marshal.
func Unmarshal(data []byte) (*DayRecord, error) {
	var r DayRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode day record: %w", err)
	}
	return &r, nil
}
