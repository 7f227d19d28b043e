package ledger

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Razdnut/torna-a-casa/internal/timeutil"
)

// Evaluate validates one day's recorded timestamps against the policy and
// derives the required exit time, worked minutes and the daily debt or
// credit. It is pure and synchronous. Validation failures populate
// Result.Error; the first violated check wins and supersedes every derived
// value. A missing final exit is not an error: the result still carries the
// predicted exit, with debt and credit left unset.
func Evaluate(in Input, p Policy) Result {
	fail := func(format string, args ...any) Result {
		return Result{Error: fmt.Sprintf(format, args...)}
	}

	morning, err := parseOptional(in.MorningIn)
	if err != nil {
		return Result{Error: err.Error()}
	}
	lunchOut, err := parseOptional(in.LunchOut)
	if err != nil {
		return Result{Error: err.Error()}
	}
	lunchIn, err := parseOptional(in.LunchIn)
	if err != nil {
		return Result{Error: err.Error()}
	}
	finalOut, err := parseOptional(in.FinalOut)
	if err != nil {
		return Result{Error: err.Error()}
	}
	permitOut, err := parseOptional(in.PermitOut)
	if err != nil {
		return Result{Error: err.Error()}
	}
	permitIn, err := parseOptional(in.PermitIn)
	if err != nil {
		return Result{Error: err.Error()}
	}

	var extraEnts, extraExits []int
	for _, seg := range in.Extra {
		if seg.Entrance == "" || seg.Exit == "" {
			return fail("incomplete extra segment: entrance and exit are both required")
		}
		ent, err := timeutil.ParseClock(seg.Entrance)
		if err != nil {
			return Result{Error: err.Error()}
		}
		exit, err := timeutil.ParseClock(seg.Exit)
		if err != nil {
			return Result{Error: err.Error()}
		}
		extraEnts = append(extraEnts, ent)
		extraExits = append(extraExits, exit)
	}

	if morning == nil {
		return fail("morning entry is required")
	}

	// A break taken on premises has no exit/return pair even if stale
	// values are still present in the input.
	if in.PauseNoExit {
		lunchOut, lunchIn = nil, nil
	}

	// Office and lunch-window bounds.
	if *morning < p.OfficeOpen {
		return fail("morning entry cannot be before office opening (%s)", timeutil.FormatClock(p.OfficeOpen))
	}
	if finalOut != nil && *finalOut > p.OfficeClose {
		return fail("final exit cannot be after office closing (%s)", timeutil.FormatClock(p.OfficeClose))
	}
	if lunchOut != nil && *lunchOut < p.LunchStart {
		return fail("lunch exit cannot be before %s", timeutil.FormatClock(p.LunchStart))
	}
	if lunchIn != nil && *lunchIn > p.LunchEnd {
		return fail("lunch return cannot be after %s", timeutil.FormatClock(p.LunchEnd))
	}

	if (lunchOut == nil) != (lunchIn == nil) {
		return fail("lunch exit and lunch return must both be set")
	}
	if lunchOut != nil {
		if *lunchOut <= *morning {
			return fail("lunch exit must be after morning entry")
		}
		if *lunchIn <= *lunchOut {
			return fail("lunch return must be after lunch exit")
		}
	}

	// Effective entrance/exit sequence: morning and lunch return pair with
	// lunch exit and final exit, extra segments slot in between.
	entrances := []int{*morning}
	var exits []int
	lunchGap := 0.0
	if lunchOut != nil {
		exits = append(exits, *lunchOut)
		entrances = append(entrances, *lunchIn)
		lunchGap = float64(*lunchIn - *lunchOut)
	}
	entrances = append(entrances, extraEnts...)
	exits = append(exits, extraExits...)
	sort.Ints(entrances)
	sort.Ints(exits)

	hasFinal := finalOut != nil
	if hasFinal {
		if lunchIn != nil && *finalOut <= *lunchIn {
			return fail("final exit must be after lunch return")
		}
		if lunchIn == nil && *finalOut <= *morning {
			return fail("final exit must be after morning entry")
		}
		if len(exits) > 0 && *finalOut <= exits[len(exits)-1] {
			return fail("final exit must be after every other exit")
		}
		exits = append(exits, *finalOut)
	}

	for i := range exits {
		if exits[i] <= entrances[i] {
			return fail("exit %s must be after entrance %s",
				timeutil.FormatClock(exits[i]), timeutil.FormatClock(entrances[i]))
		}
		if i+1 < len(entrances) && entrances[i+1] <= exits[i] {
			return fail("overlapping attendance segments around %s", timeutil.FormatClock(exits[i]))
		}
	}

	// Counted lunch duration, floored at the mandatory minimum. The part
	// beyond the floor is recoverable overage and must be worked back.
	var infos []string
	floor := float64(p.BreakMinutes)
	counted := math.Max(lunchGap, floor)
	overage := counted - floor
	switch {
	case in.PauseNoExit:
		infos = append(infos, fmt.Sprintf("break taken on premises; the mandatory %s is counted anyway",
			timeutil.FormatMinutes(floor)))
	case lunchGap == 0:
		infos = append(infos, fmt.Sprintf("no break logged; the mandatory %s is counted anyway",
			timeutil.FormatMinutes(floor)))
	case lunchGap < floor:
		infos = append(infos, fmt.Sprintf("break under %s; counted at the mandatory minimum anyway",
			timeutil.FormatMinutes(floor)))
	}

	// Permit time is required presence that was not worked.
	permit := 0.0
	if in.UsedPermit && permitOut != nil && permitIn != nil && *permitIn > *permitOut {
		permit = float64(*permitIn - *permitOut)
	}

	// Off-premises gaps other than the lunch break extend required
	// presence the same way the lunch gap does.
	otherGaps := 0.0
	for i := 0; i+1 < len(entrances) && i < len(exits); i++ {
		otherGaps += float64(entrances[i+1] - exits[i])
	}
	otherGaps -= lunchGap

	required := float64(*morning) + float64(p.WorkMinutes) + floor + overage + permit + otherGaps
	if required > float64(p.OfficeClose) {
		return fail("required exit %s would be after office closing (%s)",
			timeutil.FormatClock(int(required)), timeutil.FormatClock(p.OfficeClose))
	}

	worked := 0.0
	if hasFinal {
		elapsed := float64(*finalOut - *morning)
		worked = elapsed - counted - otherGaps
	}

	// Mid-day checkpoint: an open last segment is assumed to run through
	// the checkpoint.
	cp := float64(p.Checkpoint)
	workedByCp := 0.0
	for i, ent := range entrances {
		start := float64(ent)
		if start >= cp {
			continue
		}
		end := cp
		if i < len(exits) && float64(exits[i]) < cp {
			end = float64(exits[i])
		}
		workedByCp += end - start
	}
	if workedByCp < float64(p.MinWorkByCheckpoint) {
		return fail("at least %s must be worked by %s",
			timeutil.FormatMinutes(float64(p.MinWorkByCheckpoint)), timeutil.FormatClock(p.Checkpoint))
	}

	hadLunch := in.PauseNoExit || lunchOut != nil
	if hadLunch && hasFinal && worked < float64(p.MinWorkForLunch) {
		return fail("a lunch break requires at least %s of work",
			timeutil.FormatMinutes(float64(p.MinWorkForLunch)))
	}

	res := Result{
		PredictedExit:       timeutil.FormatClock(int(required)),
		LunchMinutesCounted: counted,
		PermitMinutes:       permit,
	}
	if hasFinal {
		res.WorkedMinutes = worked
		res.WorkedWithPermit = worked + permit
		if in.PauseNoExit && in.UsedPermit && worked > float64(p.WorkMinutes) {
			// Permit is absorbed into the displayed total only once the
			// contractual duration is already met on its own.
			res.WorkedMinutes = worked + permit
		}
		diff := worked - (float64(p.WorkMinutes) + permit)
		switch {
		case diff < 0:
			res.DebtMinutes = -diff
		case diff > 0:
			res.CreditMinutes = diff
		}
	} else {
		infos = append(infos, "no final exit recorded; debt and credit are left unset")
	}
	res.Info = strings.Join(infos, "; ")
	return res
}

func parseOptional(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := timeutil.ParseClock(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
