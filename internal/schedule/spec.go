package schedule

// Decision is the outcome of evaluating one resource's schedule at one
// point in time.
type Decision int

const (
	// NoAction means leave the resource alone (manual control, or the
	// schedule could not be understood).
	NoAction Decision = iota
	// Start means the resource should be running.
	Start
	// Stop means the resource should be stopped.
	Stop
)

func (d Decision) String() string {
	switch d {
	case Start:
		return "start"
	case Stop:
		return "stop"
	default:
		return "none"
	}
}

// Time sentinels that may appear in a Spec's Start/Stop fields instead of a
// concrete HH:MM clock time.
const (
	SentinelAlways = "always"
	SentinelNever  = "never"
	SentinelManual = "manual"
)

// Spec is the parsed representation of when a resource should run.
//
// Days holds a symbolic day-range ("Mon-Fri", "Sat-Sun", "Mon-Sun"), a
// comma list ("Mon,Wed,Fri"), or a single day name. Start and Stop hold
// either "HH:MM" 24-hour times or one of the sentinels above.
//
// Specs are plain values. They are built fresh from the tag string on each
// evaluation pass and never mutated.
type Spec struct {
	Days  string
	Start string
	Stop  string
}
