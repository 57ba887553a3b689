package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks a parsed config for internal consistency. It is installed
// as the Manager's reload validator so a broken edit never reaches running
// services.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: %w", err)
		}
	}
	if spec := strings.TrimSpace(cfg.Scheduler.SweepSchedule); spec != "" {
		if _, err := cronParser.Parse(spec); err != nil {
			return fmt.Errorf("scheduler.sweep_schedule: %w", err)
		}
	}

	if n := cfg.Notifier; n != nil && n.Enabled {
		if strings.TrimSpace(n.TopicARN) == "" {
			return fmt.Errorf("notifier.topic_arn required when notifier is enabled")
		}
		if _, err := ParseDurationField("notifier.retry_base", n.RetryBase); err != nil {
			return err
		}
		if _, err := ParseDurationField("notifier.retry_max_delay", n.RetryMaxDelay); err != nil {
			return err
		}
	}

	if s := cfg.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", s.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout); err != nil {
			return err
		}
	}

	if l := cfg.Lifecycle; l != nil && l.Enabled {
		ia, gl, da := l.DaysIA, l.DaysGlacier, l.DaysDeepArchive
		if ia != 0 && gl != 0 && ia >= gl {
			return fmt.Errorf("lifecycle: days_ia (%d) must be < days_glacier (%d)", ia, gl)
		}
		if gl != 0 && da != 0 && gl >= da {
			return fmt.Errorf("lifecycle: days_glacier (%d) must be < days_deep_archive (%d)", gl, da)
		}
	}

	return nil
}
