package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"costguard/internal/eventbus"
	"costguard/internal/sweep"
	logx "costguard/pkg/logx"
)

type fakePublisher struct {
	mu       sync.Mutex
	sent     []Message
	failures int // fail this many calls before succeeding
}

func (f *fakePublisher) Publish(ctx context.Context, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("throttled")
	}
	f.sent = append(f.sent, Message{Subject: subject, Body: body})
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestEnqueueDelivers(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{}
	s := New(Config{Enabled: true, RatePerSec: 100}, pub, logx.Nop(), eventbus.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop(context.Background())

	if err := s.Enqueue(ctx, Message{Subject: "s", Body: "b"}); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}
	waitFor(t, func() bool { return pub.count() == 1 })
}

func TestEnqueueDisabled(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: false}, &fakePublisher{}, logx.Nop(), nil)
	if err := s.Enqueue(context.Background(), Message{Body: "b"}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestEnqueueBeforeStart(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, &fakePublisher{}, logx.Nop(), nil)
	if err := s.Enqueue(context.Background(), Message{Body: "b"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{failures: 2}
	s := New(Config{
		Enabled: true, RatePerSec: 100, RetryMax: 3,
		RetryBase: time.Millisecond, RetryMaxDelay: 5 * time.Millisecond,
	}, pub, logx.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop(context.Background())

	if err := s.Enqueue(ctx, Message{Subject: "s", Body: "b"}); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}
	waitFor(t, func() bool { return pub.count() == 1 })
}

func TestStopDrainsQueue(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{}
	s := New(Config{Enabled: true, RatePerSec: 1000, QueueSize: 8}, pub, logx.Nop(), nil)
	ctx := context.Background()
	s.Start(ctx)

	for i := 0; i < 3; i++ {
		if err := s.Enqueue(ctx, Message{Subject: "s", Body: "b"}); err != nil {
			t.Fatalf("Enqueue error: %v", err)
		}
	}
	s.Stop(ctx)

	if pub.count() != 3 {
		t.Fatalf("sent = %d, want 3 after drain", pub.count())
	}
	if err := s.Enqueue(ctx, Message{Body: "late"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped after Stop", err)
	}
}

func TestRetryDelayBounds(t *testing.T) {
	t.Parallel()
	cfg := Config{RetryBase: 100 * time.Millisecond, RetryMaxDelay: time.Second}
	for attempt := 1; attempt <= 8; attempt++ {
		d := retryDelay(cfg, attempt)
		if d <= 0 || d > cfg.RetryMaxDelay {
			t.Fatalf("attempt %d: delay %v out of (0, %v]", attempt, d, cfg.RetryMaxDelay)
		}
	}
}

func TestFormatReport(t *testing.T) {
	t.Parallel()
	sum := sweep.Summary{
		Time:   time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
		DryRun: true,
		Kinds: map[string]sweep.KindCounts{
			"ec2": {Processed: 5, Started: 1, Stopped: 2},
			"rds": {Processed: 2, Stopped: 1},
		},
		Actions: []string{"Started ec2 resource: i-1"},
		Errors:  []string{"Error processing rds resource db-9: timeout"},
	}
	m := FormatReport(sum, "AutoSchedule")

	if !strings.HasPrefix(m.Subject, "Resource Scheduler Report - 2026-08-24") {
		t.Fatalf("subject = %q", m.Subject)
	}
	for _, want := range []string{
		"(DRY RUN)",
		"EC2 processed: 5",
		"RDS stopped: 1",
		"Started ec2 resource: i-1",
		"ERRORS (1):",
		"business-hours: Mon-Fri 08:00-18:00",
		"AutoSchedule=<schedule>",
		"DoNotShutdown=true",
	} {
		if !strings.Contains(m.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, m.Body)
		}
	}
}

func TestFormatReportExecutionModeNoErrors(t *testing.T) {
	t.Parallel()
	m := FormatReport(sweep.Summary{
		Time:  time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
		Kinds: map[string]sweep.KindCounts{"ec2": {Processed: 1}},
	}, "AutoSchedule")
	if !strings.Contains(m.Body, "(EXECUTION)") {
		t.Fatalf("body = %q", m.Body)
	}
	if strings.Contains(m.Body, "ERRORS") {
		t.Fatal("error section should be omitted when empty")
	}
	if !strings.Contains(m.Body, "- none") {
		t.Fatal("empty action list should render as none")
	}
}
