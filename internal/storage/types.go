package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the run/action history.
//
// Driver values:
//   - "file": dependency-free jsonl backend
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RunRecord is one sweep outcome. Keep it compact and schema-stable.
type RunRecord struct {
	At        time.Time `json:"at"`
	DryRun    bool      `json:"dry_run"`
	Processed int       `json:"processed"`
	Started   int       `json:"started"`
	Stopped   int       `json:"stopped"`
	Errors    int       `json:"errors"`
	TookMS    int64     `json:"took_ms"`
	// DetailJSON carries the full summary for later inspection.
	DetailJSON string `json:"detail,omitempty"`
}

// ActionRecord is one start/stop applied to a resource.
type ActionRecord struct {
	At         time.Time `json:"at"`
	Kind       string    `json:"kind"`
	ResourceID string    `json:"resource_id"`
	Action     string    `json:"action"`
	DryRun     bool      `json:"dry_run"`
}
