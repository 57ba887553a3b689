package app

import (
	"testing"
	"time"

	"costguard/internal/config"
)

func TestMapNotifierConfig(t *testing.T) {
	t.Parallel()

	got, err := mapNotifierConfig(nil)
	if err != nil {
		t.Fatalf("nil config: %v", err)
	}
	if got.Enabled {
		t.Fatal("nil config must map to disabled notifier")
	}

	got, err = mapNotifierConfig(&config.NotifierConfig{
		Enabled:  true,
		TopicARN: "arn:aws:sns:eu-central-1:123456789012:alerts",
		Workers:  3,
	})
	if err != nil {
		t.Fatalf("map error: %v", err)
	}
	if !got.Enabled || got.Workers != 3 {
		t.Fatalf("got %+v", got)
	}
	if got.RetryBase != 500*time.Millisecond || got.RetryMaxDelay != 10*time.Second {
		t.Fatalf("duration defaults not applied: %+v", got)
	}

	if _, err := mapNotifierConfig(&config.NotifierConfig{RetryBase: "soon"}); err == nil {
		t.Fatal("expected error for bad retry_base")
	}
}

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()

	got, err := mapStorageConfig(&config.StorageConfig{Driver: "sqlite", Path: "/tmp/x.db"})
	if err != nil {
		t.Fatalf("map error: %v", err)
	}
	if got.BusyTimeout != 5*time.Second {
		t.Fatalf("busy timeout default = %v", got.BusyTimeout)
	}

	got, err = mapStorageConfig(&config.StorageConfig{Driver: "sqlite", Path: "/tmp/x.db", BusyTimeout: "2s"})
	if err != nil {
		t.Fatalf("map error: %v", err)
	}
	if got.BusyTimeout != 2*time.Second {
		t.Fatalf("busy timeout = %v", got.BusyTimeout)
	}

	if _, err := mapStorageConfig(&config.StorageConfig{BusyTimeout: "never"}); err == nil {
		t.Fatal("expected error for bad busy_timeout")
	}
}

func TestLocationFor(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	loc, err := locationFor(cfg)
	if err != nil || loc != time.UTC {
		t.Fatalf("empty timezone = %v, %v", loc, err)
	}

	cfg.Scheduler.Timezone = "Europe/Berlin"
	loc, err = locationFor(cfg)
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Fatalf("timezone = %v, %v", loc, err)
	}

	cfg.Scheduler.Timezone = "Mars/Olympus"
	if _, err := locationFor(cfg); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestTagKeyFor(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	if got := tagKeyFor(cfg); got != "AutoSchedule" {
		t.Fatalf("default tag key = %q", got)
	}
	cfg.Scheduler.TagKey = "Shutdown"
	if got := tagKeyFor(cfg); got != "Shutdown" {
		t.Fatalf("tag key = %q", got)
	}
}

func TestStorageEqual(t *testing.T) {
	t.Parallel()

	a := &config.StorageConfig{Driver: "file", Path: "a"}
	b := &config.StorageConfig{Driver: "file", Path: "a"}
	c := &config.StorageConfig{Driver: "file", Path: "b"}

	if !storageEqual(nil, nil) {
		t.Fatal("nil,nil should be equal")
	}
	if storageEqual(a, nil) || storageEqual(nil, a) {
		t.Fatal("nil vs value should differ")
	}
	if !storageEqual(a, b) || storageEqual(a, c) {
		t.Fatal("value comparison wrong")
	}
}
