package clock

import "time"

// Clock abstracts "now" so schedule evaluation is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// System returns a Clock backed by the wall clock, in UTC.
func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Fixed returns a Clock frozen at t. Test helper, but harmless in production
// code paths (dry-run replays use it too).
func Fixed(t time.Time) Clock { return fixedClock{t: t} }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
