package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// MalformedError reports a schedule string that matches neither a preset nor
// the custom "days:start-stop" format, or one that matches the shape but
// carries an invalid time token.
//
// Callers treat it as "skip this resource": the decision becomes NoAction and
// the batch continues.
type MalformedError struct {
	Raw    string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed schedule %q: %s", e.Raw, e.Reason)
}

// ParseCustom parses a custom schedule of the form "<days>:<start>-<stop>",
// e.g. "Mon-Fri:09:00-17:00".
//
// The day segment is split off at the FIRST colon (times contain colons of
// their own), and the time range is split at the LAST dash (day ranges like
// Mon-Fri contain a dash too). Both times must be valid HH:MM 24-hour clock
// values.
func ParseCustom(raw string) (Spec, error) {
	i := strings.Index(raw, ":")
	if i < 0 {
		return Spec{}, &MalformedError{Raw: raw, Reason: "missing days/time separator"}
	}
	days := raw[:i]
	rest := raw[i+1:]
	if strings.TrimSpace(days) == "" {
		return Spec{}, &MalformedError{Raw: raw, Reason: "empty day segment"}
	}

	j := strings.LastIndex(rest, "-")
	if j < 0 {
		return Spec{}, &MalformedError{Raw: raw, Reason: "missing start-stop separator"}
	}
	start := rest[:j]
	stop := rest[j+1:]

	if _, _, err := parseHHMM(start); err != nil {
		return Spec{}, &MalformedError{Raw: raw, Reason: "bad start time: " + err.Error()}
	}
	if _, _, err := parseHHMM(stop); err != nil {
		return Spec{}, &MalformedError{Raw: raw, Reason: "bad stop time: " + err.Error()}
	}

	return Spec{Days: days, Start: start, Stop: stop}, nil
}

// Resolve maps a raw tag value to a Spec: preset lookup first, custom format
// second. It never consults the clock.
func Resolve(raw string) (Spec, error) {
	raw = strings.TrimSpace(raw)
	if s, ok := Preset(raw); ok {
		return s, nil
	}
	return ParseCustom(raw)
}

// parseHHMM parses a strict 24-hour "HH:MM" token. Two digits each; no
// seconds, no "9:00" shorthand.
func parseHHMM(s string) (h, m int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err = strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err = strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", s)
	}
	return h, m, nil
}
