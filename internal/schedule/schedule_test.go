package schedule

import (
	"errors"
	"testing"
	"time"
)

// 2026-08-24 is a Monday; offsets from it give deterministic weekdays.
func at(dayOffset, hour, min int) time.Time {
	return time.Date(2026, 8, 24+dayOffset, hour, min, 0, 0, time.UTC)
}

func TestPresetTriples(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		days  string
		start string
		stop  string
	}{
		{name: "business-hours", days: "Mon-Fri", start: "08:00", stop: "18:00"},
		{name: "dev-hours", days: "Mon-Fri", start: "09:00", stop: "17:00"},
		{name: "demo-only", days: "Mon-Sun", start: "manual", stop: "manual"},
		{name: "24x7", days: "Mon-Sun", start: "always", stop: "never"},
		{name: "never", days: "Mon-Sun", start: "never", stop: "always"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Preset(tt.name)
			if !ok {
				t.Fatalf("Preset(%q) not found", tt.name)
			}
			want := Spec{Days: tt.days, Start: tt.start, Stop: tt.stop}
			if got != want {
				t.Fatalf("Preset(%q) = %+v, want %+v", tt.name, got, want)
			}
		})
	}

	if _, ok := Preset("office-hours"); ok {
		t.Fatal("Preset should not recognize unknown names")
	}
}

func TestParseCustom(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want Spec
	}{
		{name: "weekday range", raw: "Mon-Fri:09:00-17:00", want: Spec{Days: "Mon-Fri", Start: "09:00", Stop: "17:00"}},
		{name: "weekend", raw: "Sat-Sun:10:30-16:45", want: Spec{Days: "Sat-Sun", Start: "10:30", Stop: "16:45"}},
		{name: "comma list", raw: "Mon,Wed,Fri:08:00-12:00", want: Spec{Days: "Mon,Wed,Fri", Start: "08:00", Stop: "12:00"}},
		{name: "single day", raw: "Tue:00:00-23:59", want: Spec{Days: "Tue", Start: "00:00", Stop: "23:59"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCustom(tt.raw)
			if err != nil {
				t.Fatalf("ParseCustom(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("ParseCustom(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseCustomInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no HH:MM", raw: "Mon-Fri:9-17"},
		{name: "no separator", raw: "business hours"},
		{name: "empty days", raw: ":09:00-17:00"},
		{name: "missing dash", raw: "Mon-Fri:09:00"},
		{name: "hour out of range", raw: "Mon-Fri:24:00-17:00"},
		{name: "minute out of range", raw: "Mon-Fri:09:60-17:00"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCustom(tt.raw)
			var merr *MalformedError
			if !errors.As(err, &merr) {
				t.Fatalf("ParseCustom(%q) err = %v, want MalformedError", tt.raw, err)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		now  time.Time
		want Decision
	}{
		{name: "weekday in window", raw: "Mon-Fri:09:00-17:00", now: at(0, 10, 0), want: Start},
		{name: "weekday after window", raw: "Mon-Fri:09:00-17:00", now: at(0, 18, 0), want: Stop},
		{name: "window edges inclusive", raw: "Mon-Fri:09:00-17:00", now: at(0, 17, 0), want: Start},
		{name: "saturday forces stop", raw: "Mon-Fri:09:00-17:00", now: at(5, 10, 0), want: Stop},
		{name: "always on", raw: "24x7", now: at(6, 3, 0), want: Start},
		{name: "always off", raw: "never", now: at(0, 12, 0), want: Stop},
		{name: "manual control", raw: "demo-only", now: at(0, 12, 0), want: NoAction},
		{name: "business hours preset", raw: "business-hours", now: at(1, 8, 0), want: Start},
		{name: "comma list hit", raw: "Mon,Wed,Fri:08:00-12:00", now: at(2, 9, 0), want: Start},
		{name: "comma list miss", raw: "Mon,Wed,Fri:08:00-12:00", now: at(1, 9, 0), want: Stop},
		{name: "single day literal", raw: "Tue:00:00-23:59", now: at(1, 12, 0), want: Start},
	}
	var ev Evaluator
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Decide(tt.raw, tt.now)
			if err != nil {
				t.Fatalf("Decide(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("Decide(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDecideUnknownFormat(t *testing.T) {
	t.Parallel()
	var ev Evaluator
	got, err := ev.Decide("whenever", at(0, 10, 0))
	if got != NoAction {
		t.Fatalf("Decide = %v, want NoAction", got)
	}
	var merr *MalformedError
	if !errors.As(err, &merr) {
		t.Fatalf("err = %v, want MalformedError", err)
	}
}

// The legacy engine never wraps overnight windows: stop < start makes the
// inclusive comparison vacuously false, so the resource is stopped even
// inside the intended on-window. That stays the default.
func TestOvernightWindowLegacyDefault(t *testing.T) {
	t.Parallel()
	var ev Evaluator
	got, err := ev.Decide("Mon-Sun:22:00-06:00", at(0, 23, 0))
	if err != nil {
		t.Fatalf("Decide error: %v", err)
	}
	if got != Stop {
		t.Fatalf("Decide = %v, want Stop (legacy overnight semantics)", got)
	}
}

func TestOvernightWindowOptIn(t *testing.T) {
	t.Parallel()
	ev := Evaluator{AllowOvernight: true}
	tests := []struct {
		name string
		now  time.Time
		want Decision
	}{
		{name: "late evening", now: at(0, 23, 0), want: Start},
		{name: "early morning", now: at(1, 5, 0), want: Start},
		{name: "midday", now: at(0, 12, 0), want: Stop},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Decide("Mon-Sun:22:00-06:00", tt.now)
			if err != nil {
				t.Fatalf("Decide error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Decide = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateDayOutOfRangeBeatsSentinels(t *testing.T) {
	t.Parallel()
	var ev Evaluator
	// Even an "always" start loses to a day outside the range.
	spec := Spec{Days: "Mon-Fri", Start: SentinelAlways, Stop: SentinelNever}
	got, err := ev.Evaluate(spec, at(5, 12, 0)) // Saturday
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if got != Stop {
		t.Fatalf("Evaluate = %v, want Stop", got)
	}
}

func TestDecisionString(t *testing.T) {
	t.Parallel()
	if Start.String() != "start" || Stop.String() != "stop" || NoAction.String() != "none" {
		t.Fatalf("unexpected Decision strings: %v %v %v", Start, Stop, NoAction)
	}
}
