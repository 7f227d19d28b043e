package ledger

// Segment is one extra (entrance, exit) attendance pair logged during the
// day, in addition to the morning/lunch/final timestamps.
type Segment struct {
	Entrance string `json:"entrance"`
	Exit     string `json:"exit"`
}

// Input is the raw user-entered state of one work day. Time fields are
// optional "HH:MM" strings; empty means not recorded.
type Input struct {
	MorningIn string
	LunchOut  string
	LunchIn   string
	FinalOut  string

	// PauseNoExit marks a lunch break taken without leaving the premises.
	PauseNoExit bool

	UsedPermit bool
	PermitOut  string
	PermitIn   string

	// Extra holds additional comings and goings during the day.
	Extra []Segment
}

// Mode identifies which variant of the evaluation skeleton applies.
type Mode int

const (
	// ModeSimple is a plain day: morning in, optional lunch exit/return,
	// optional final out.
	ModeSimple Mode = iota
	// ModeNoExitPause is a day whose lunch break was taken on premises.
	ModeNoExitPause
	// ModeMultiSegment is a day with extra entrance/exit pairs.
	ModeMultiSegment
)

// Mode returns the day mode. Permits are orthogonal to the mode.
func (in Input) Mode() Mode {
	if len(in.Extra) > 0 {
		return ModeMultiSegment
	}
	if in.PauseNoExit {
		return ModeNoExitPause
	}
	return ModeSimple
}

func (m Mode) String() string {
	switch m {
	case ModeNoExitPause:
		return "no-exit pause"
	case ModeMultiSegment:
		return "multi-segment"
	default:
		return "simple"
	}
}

// Result is the outcome of evaluating one day. At most one of DebtMinutes
// and CreditMinutes is non-zero; both stay zero until a final exit exists.
// A non-empty Error supersedes every derived value.
type Result struct {
	PredictedExit       string  `json:"predictedExit,omitempty"`
	WorkedMinutes       float64 `json:"workedMinutes"`
	WorkedWithPermit    float64 `json:"workedWithPermit"`
	LunchMinutesCounted float64 `json:"lunchMinutesCounted"`
	DebtMinutes         float64 `json:"debtMinutes"`
	CreditMinutes       float64 `json:"creditMinutes"`
	PermitMinutes       float64 `json:"permitMinutes"`
	Error               string  `json:"error,omitempty"`
	Info                string  `json:"info,omitempty"`
}

// Valid reports whether the evaluation passed validation.
func (r Result) Valid() bool {
	return r.Error == ""
}
