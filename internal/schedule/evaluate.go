package schedule

import (
	"strings"
	"time"
)

// Evaluator turns a schedule specifier plus a timestamp into a Decision.
//
// The zero value reproduces the historical semantics exactly, including two
// behaviors that look like latent bugs but are load-bearing for existing
// deployments:
//
//   - A day outside the allowed range yields Stop, not NoAction. "Wrong day"
//     is an active stop command.
//   - Overnight windows (stop earlier than start, e.g. 22:00-06:00) are not
//     wrapped: the inclusive range comparison is always false, so the
//     resource is stopped even inside the intended on-window. Set
//     AllowOvernight to opt in to wrap-around handling.
type Evaluator struct {
	AllowOvernight bool
}

// Decide runs the full pipeline on a raw tag value: special-case names,
// preset lookup, custom parse, then time evaluation.
//
// A malformed or unknown specifier yields (NoAction, err) — the caller logs
// and skips the resource, it never aborts the batch.
func (ev Evaluator) Decide(raw string, now time.Time) (Decision, error) {
	raw = strings.TrimSpace(raw)

	// These three names bypass the registry and the clock entirely.
	switch raw {
	case Preset24x7:
		return Start, nil
	case PresetNever:
		return Stop, nil
	case PresetDemoOnly:
		return NoAction, nil
	}

	spec, err := Resolve(raw)
	if err != nil {
		return NoAction, err
	}
	return ev.Evaluate(spec, now)
}

// Evaluate applies a parsed Spec at the given instant.
//
// The weekday and time-of-day are taken from now as-is; callers are expected
// to hand in a clock already in the zone schedules are written against.
func (ev Evaluator) Evaluate(spec Spec, now time.Time) (Decision, error) {
	if !dayMatches(now.Weekday(), spec.Days) {
		return Stop, nil
	}

	switch spec.Start {
	case SentinelAlways, SentinelManual:
		return Start, nil
	case SentinelNever:
		return Stop, nil
	}

	startH, startM, err := parseHHMM(spec.Start)
	if err != nil {
		return NoAction, &MalformedError{Raw: spec.Start, Reason: err.Error()}
	}
	stopH, stopM, err := parseHHMM(spec.Stop)
	if err != nil {
		return NoAction, &MalformedError{Raw: spec.Stop, Reason: err.Error()}
	}

	t := now.Hour()*60 + now.Minute()
	start := startH*60 + startM
	stop := stopH*60 + stopM

	if ev.AllowOvernight && start > stop {
		if t >= start || t <= stop {
			return Start, nil
		}
		return Stop, nil
	}

	// Inclusive window. When start > stop this is vacuously false and the
	// decision is Stop; see the Evaluator doc for why that stays.
	if start <= t && t <= stop {
		return Start, nil
	}
	return Stop, nil
}

// dayNames uses Mon=0..Sun=6 ordering for range checks.
var dayIndex = map[string]int{
	"Mon": 0, "Tue": 1, "Wed": 2, "Thu": 3,
	"Fri": 4, "Sat": 5, "Sun": 6,
}

// dayMatches reports whether weekday wd falls inside the symbolic day range.
// Only the three canonical ranges are treated as ranges; anything else is a
// comma list or a literal single-day match.
func dayMatches(wd time.Weekday, daysRange string) bool {
	day := wd.String()[:3]
	idx := dayIndex[day]

	switch daysRange {
	case "Mon-Sun":
		return true
	case "Mon-Fri":
		return idx <= 4
	case "Sat-Sun":
		return idx >= 5
	}

	if strings.Contains(daysRange, ",") {
		for _, d := range strings.Split(daysRange, ",") {
			if strings.TrimSpace(d) == day {
				return true
			}
		}
		return false
	}
	return daysRange == day
}
