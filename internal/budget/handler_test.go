package budget

import (
	"context"
	"errors"
	"strings"
	"testing"

	"costguard/internal/driver"
	"costguard/internal/notify"
	"costguard/internal/tags"
	logx "costguard/pkg/logx"
)

type fakeDriver struct {
	kind      string
	resources []driver.Resource
	failIDs   map[string]error
	stopped   []string
}

func (f *fakeDriver) Kind() string { return f.kind }

func (f *fakeDriver) List(ctx context.Context) ([]driver.Resource, error) {
	return f.resources, nil
}

func (f *fakeDriver) Start(ctx context.Context, id string) error { return nil }

func (f *fakeDriver) Stop(ctx context.Context, id string) error {
	if err := f.failIDs[id]; err != nil {
		return err
	}
	f.stopped = append(f.stopped, id)
	return nil
}

type fakeNotifier struct {
	msgs []notify.Message
}

func (f *fakeNotifier) Enqueue(ctx context.Context, m notify.Message) error {
	f.msgs = append(f.msgs, m)
	return nil
}

func fleet() *fakeDriver {
	return &fakeDriver{kind: "ec2", resources: []driver.Resource{
		{ID: "i-app", State: driver.StateRunning, Tags: tags.FromMap(map[string]string{})},
		{ID: "i-db", State: driver.StateRunning, Tags: tags.FromMap(map[string]string{"Essential": "true"})},
		{ID: "i-idle", State: driver.StateStopped, Tags: tags.FromMap(map[string]string{})},
	}}
}

func TestProcessBelowWarning(t *testing.T) {
	t.Parallel()
	d := fleet()
	n := &fakeNotifier{}
	out := NewHandler(Config{}, []driver.Driver{d}, n, nil, logx.Nop()).
		Process(context.Background(), Alert{BudgetName: "dev", ThresholdPct: 42})

	if out.Level != "none" || len(out.Actions) != 0 || len(n.msgs) != 0 || len(d.stopped) != 0 {
		t.Fatalf("outcome = %+v, msgs = %v, stopped = %v", out, n.msgs, d.stopped)
	}
}

func TestProcessWarningTier(t *testing.T) {
	t.Parallel()
	d := fleet()
	n := &fakeNotifier{}
	out := NewHandler(Config{}, []driver.Driver{d}, n, nil, logx.Nop()).
		Process(context.Background(), Alert{BudgetName: "dev", ThresholdPct: 65})

	if out.Level != "warning" {
		t.Fatalf("level = %q", out.Level)
	}
	if len(d.stopped) != 0 {
		t.Fatalf("warning tier must not stop resources, stopped = %v", d.stopped)
	}
	if len(n.msgs) != 1 || !strings.Contains(n.msgs[0].Subject, "Budget Warning") {
		t.Fatalf("msgs = %+v", n.msgs)
	}
}

func TestProcessCriticalSparesEssential(t *testing.T) {
	t.Parallel()
	d := fleet()
	n := &fakeNotifier{}
	out := NewHandler(Config{}, []driver.Driver{d}, n, nil, logx.Nop()).
		Process(context.Background(), Alert{BudgetName: "dev", ThresholdPct: 85})

	if out.Level != "critical" {
		t.Fatalf("level = %q", out.Level)
	}
	if len(d.stopped) != 1 || d.stopped[0] != "i-app" {
		t.Fatalf("stopped = %v, want only i-app", d.stopped)
	}
	if len(n.msgs) != 1 || !strings.Contains(n.msgs[0].Body, "Essential services remain running") {
		t.Fatalf("msgs = %+v", n.msgs)
	}
}

func TestProcessEmergencyStopsEverything(t *testing.T) {
	t.Parallel()
	d := fleet()
	n := &fakeNotifier{}
	out := NewHandler(Config{}, []driver.Driver{d}, n, nil, logx.Nop()).
		Process(context.Background(), Alert{BudgetName: "dev", ThresholdPct: 110})

	if out.Level != "emergency" {
		t.Fatalf("level = %q", out.Level)
	}
	// Emergency ignores the Essential tag; only already-stopped resources
	// are skipped.
	if len(d.stopped) != 2 {
		t.Fatalf("stopped = %v, want i-app and i-db", d.stopped)
	}
	if !strings.Contains(n.msgs[0].Subject, "EMERGENCY SHUTDOWN") {
		t.Fatalf("subject = %q", n.msgs[0].Subject)
	}
}

func TestProcessPartialFailure(t *testing.T) {
	t.Parallel()
	d := fleet()
	d.failIDs = map[string]error{"i-app": errors.New("api error")}
	out := NewHandler(Config{}, []driver.Driver{d}, &fakeNotifier{}, nil, logx.Nop()).
		Process(context.Background(), Alert{BudgetName: "dev", ThresholdPct: 110})

	if len(out.Errors) != 1 || !strings.Contains(out.Errors[0], "i-app") {
		t.Fatalf("errors = %v", out.Errors)
	}
	if len(d.stopped) != 1 || d.stopped[0] != "i-db" {
		t.Fatalf("stopped = %v, want i-db despite i-app failure", d.stopped)
	}
}

func TestProcessDisabled(t *testing.T) {
	t.Parallel()
	d := fleet()
	n := &fakeNotifier{}
	out := NewHandler(Config{Disabled: true}, []driver.Driver{d}, n, nil, logx.Nop()).
		Process(context.Background(), Alert{BudgetName: "dev", ThresholdPct: 110})

	if out.Level != "disabled" || !out.Disabled {
		t.Fatalf("outcome = %+v", out)
	}
	if len(d.stopped) != 0 {
		t.Fatalf("disabled handler must not stop anything, stopped = %v", d.stopped)
	}
	if len(n.msgs) != 1 || !strings.Contains(n.msgs[0].Subject, "Shutdown Disabled") {
		t.Fatalf("msgs = %+v", n.msgs)
	}
}

func TestCustomEssentialTag(t *testing.T) {
	t.Parallel()
	d := &fakeDriver{kind: "rds", resources: []driver.Resource{
		{ID: "db-keep", State: driver.StateRunning, Tags: tags.FromMap(map[string]string{"Tier": "prod"})},
		{ID: "db-stop", State: driver.StateRunning, Tags: tags.FromMap(map[string]string{"Tier": "dev"})},
	}}
	h := NewHandler(Config{EssentialTagKey: "Tier", EssentialTagValue: "prod"},
		[]driver.Driver{d}, &fakeNotifier{}, nil, logx.Nop())
	h.Process(context.Background(), Alert{BudgetName: "dev", ThresholdPct: 90})

	if len(d.stopped) != 1 || d.stopped[0] != "db-stop" {
		t.Fatalf("stopped = %v, want db-stop", d.stopped)
	}
}
