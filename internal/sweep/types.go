package sweep

import "time"

// KindCounts aggregates per resource kind.
type KindCounts struct {
	Processed int `json:"processed"`
	Started   int `json:"started"`
	Stopped   int `json:"stopped"`
}

// Action is one start/stop decision that was acted on (or would have been,
// under dry-run).
type Action struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Decision string `json:"decision"` // "start" or "stop"
}

// Summary is the outcome of one sweep. It always carries both actions and
// errors so operators can tell partial success from total failure.
type Summary struct {
	Time    time.Time             `json:"time"`
	DryRun  bool                  `json:"dry_run"`
	Kinds   map[string]KindCounts `json:"kinds"`
	Actions []string              `json:"actions"`
	Errors  []string              `json:"errors"`

	Duration time.Duration `json:"duration"`
}

// Active reports whether anything happened worth notifying about.
func (s Summary) Active() bool { return len(s.Actions) > 0 || len(s.Errors) > 0 }

func (s Summary) Counts(kind string) KindCounts { return s.Kinds[kind] }

// Totals sums counts across kinds.
func (s Summary) Totals() KindCounts {
	var t KindCounts
	for _, c := range s.Kinds {
		t.Processed += c.Processed
		t.Started += c.Started
		t.Stopped += c.Stopped
	}
	return t
}
