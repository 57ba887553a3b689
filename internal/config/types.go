package config

// Config is the full daemon configuration.
//
// Files may be YAML or JSON; either way decoding is strict, so unknown keys
// are rejected at load time rather than silently ignored.
type Config struct {
	Logging    LoggingConfig    `json:"logging"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Protection ProtectionConfig `json:"protection,omitempty"`
	AWS        AWSConfig        `json:"aws,omitempty"`
	Drivers    DriversConfig    `json:"drivers,omitempty"`
	Notifier   *NotifierConfig  `json:"notifier,omitempty"`
	Budget     *BudgetConfig    `json:"budget,omitempty"`
	Lifecycle  *LifecycleConfig `json:"lifecycle,omitempty"`
	Storage    *StorageConfig   `json:"storage,omitempty"`
	Metrics    MetricsConfig    `json:"metrics,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls the sweep trigger and evaluation semantics.
type SchedulerConfig struct {
	// TagKey is the resource tag holding the schedule specifier.
	// Default "AutoSchedule".
	TagKey string `json:"tag_key,omitempty"`

	// Timezone is the IANA zone schedules are written against (e.g.
	// "Europe/Berlin"). Empty means UTC.
	Timezone string `json:"timezone,omitempty"`

	// SweepSchedule is a cron expression for daemon mode (e.g.
	// "*/15 * * * *"). Empty disables the periodic trigger.
	SweepSchedule string `json:"sweep_schedule,omitempty"`

	// DryRun records decisions without calling mutating APIs.
	DryRun bool `json:"dry_run,omitempty"`

	// AllowOvernight opts in to wrap-around handling for windows whose
	// stop time precedes their start time. Off by default; see the
	// schedule package for why the legacy behavior stays.
	AllowOvernight bool `json:"allow_overnight,omitempty"`
}

type ProtectionConfig struct {
	// TagKey defaults to "DoNotShutdown".
	TagKey string `json:"tag_key,omitempty"`
}

type AWSConfig struct {
	Region string `json:"region,omitempty"`
	// Endpoint overrides the service endpoint (localstack and friends).
	Endpoint        string `json:"endpoint,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty"` // do not log
}

type DriversConfig struct {
	EC2 DriverToggle `json:"ec2,omitempty"`
	RDS DriverToggle `json:"rds,omitempty"`
}

// DriverToggle distinguishes "omitted" (default on) from explicit false.
type DriverToggle struct {
	Enabled *bool `json:"enabled,omitempty"`
}

func (t DriverToggle) On() bool { return t.Enabled == nil || *t.Enabled }

// NotifierConfig controls the async SNS pipeline.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type NotifierConfig struct {
	Enabled       bool   `json:"enabled"`
	TopicARN      string `json:"topic_arn,omitempty"`
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
}

// BudgetConfig controls the budget-alert shutdown handler.
type BudgetConfig struct {
	Enabled bool `json:"enabled"`

	// EssentialTagKey/Value mark resources that survive the 80-100%
	// tier. Defaults: "Essential" / "true".
	EssentialTagKey   string `json:"essential_tag_key,omitempty"`
	EssentialTagValue string `json:"essential_tag_value,omitempty"`

	// Disabled turns every tier into notification-only.
	Disabled bool `json:"disabled,omitempty"`
}

// LifecycleConfig controls the S3 lifecycle optimizer. Day thresholds of 0
// take the defaults (30/90/365/7/90).
type LifecycleConfig struct {
	Enabled              bool `json:"enabled"`
	DryRun               bool `json:"dry_run,omitempty"`
	DaysIA               int  `json:"days_ia,omitempty"`
	DaysGlacier          int  `json:"days_glacier,omitempty"`
	DaysDeepArchive      int  `json:"days_deep_archive,omitempty"`
	IncompleteUploadDays int  `json:"incomplete_upload_days,omitempty"`
	OldVersionDays       int  `json:"old_version_days,omitempty"`
}

// StorageConfig controls the optional run/action history.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./costguard.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:9090"
}
