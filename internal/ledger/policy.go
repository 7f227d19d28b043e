package ledger

// =============================================================================
// WORKPLACE POLICY CONFIGURATION
// =============================================================================
// Default values follow the contractual rules of the original workplace:
// a 7h12m working day with a mandatory 30-minute break, office hours
// 07:30-19:00, lunch window 12:00-15:00.
//
// All values are minutes (durations) or minute-of-day offsets (clock times)
// and can be overridden through the config file or directly in tests.
// =============================================================================

// Policy holds the workplace rules a day is evaluated against.
type Policy struct {
	// WorkMinutes is the contractual daily work duration.
	WorkMinutes int

	// BreakMinutes is the mandatory minimum lunch break. It is counted
	// even when no break was logged.
	BreakMinutes int

	// OfficeOpen and OfficeClose bound the working day (minute of day).
	OfficeOpen  int
	OfficeClose int

	// LunchStart and LunchEnd bound the lunch window (minute of day).
	LunchStart int
	LunchEnd   int

	// MinWorkForLunch is the minimum total daily work required before a
	// lunch break is permitted.
	MinWorkForLunch int

	// Checkpoint is the mid-day control time (minute of day) by which
	// MinWorkByCheckpoint minutes must already have been worked.
	Checkpoint          int
	MinWorkByCheckpoint int
}

// DefaultPolicy returns the contractual workplace rules.
func DefaultPolicy() Policy {
	return Policy{
		WorkMinutes:         7*60 + 12,
		BreakMinutes:        30,
		OfficeOpen:          7*60 + 30,
		OfficeClose:         19 * 60,
		LunchStart:          12 * 60,
		LunchEnd:            15 * 60,
		MinWorkForLunch:     6 * 60,
		Checkpoint:          14*60 + 12,
		MinWorkByCheckpoint: 3*60 + 36,
	}
}
