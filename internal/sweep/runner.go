// Package sweep implements the batch engine: list tagged resources, evaluate
// each schedule, compare with observed state, and apply transitions.
//
// Processing is deliberately batch-sequential. Each resource's evaluation is
// independent; a failure on one resource is recorded and never aborts the
// rest of the batch.
package sweep

import (
	"context"
	"fmt"
	"time"

	"costguard/internal/clock"
	"costguard/internal/driver"
	"costguard/internal/eventbus"
	"costguard/internal/schedule"
	"costguard/internal/tags"
	logx "costguard/pkg/logx"
)

// Config captures the evaluation knobs for one Runner.
type Config struct {
	// TagKey is the schedule tag. Default "AutoSchedule".
	TagKey string
	// DryRun skips mutating driver calls but records decisions identically.
	DryRun bool
	// AllowOvernight opts in to wrap-around window handling.
	AllowOvernight bool
	// Location is the zone schedules are written against. Nil means UTC.
	Location *time.Location
}

const DefaultTagKey = "AutoSchedule"

func (c Config) tagKey() string {
	if c.TagKey == "" {
		return DefaultTagKey
	}
	return c.TagKey
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Runner drives one sweep across all configured drivers.
type Runner struct {
	cfg     Config
	drivers []driver.Driver
	clk     clock.Clock
	prot    tags.Protection
	bus     eventbus.Bus
	log     logx.Logger
}

func NewRunner(cfg Config, drivers []driver.Driver, clk clock.Clock, prot tags.Protection, bus eventbus.Bus, log logx.Logger) *Runner {
	if clk == nil {
		clk = clock.System()
	}
	return &Runner{cfg: cfg, drivers: drivers, clk: clk, prot: prot, bus: bus, log: log}
}

// Run executes one sweep and returns its summary. It never returns an error:
// everything that goes wrong is recorded in Summary.Errors.
func (r *Runner) Run(ctx context.Context) Summary {
	now := r.clk.Now().In(r.cfg.location())
	sum := Summary{
		Time:   now,
		DryRun: r.cfg.DryRun,
		Kinds:  make(map[string]KindCounts, len(r.drivers)),
	}
	r.publish(eventbus.Event{Type: eventbus.TypeSweepStarted, Time: now})

	ev := schedule.Evaluator{AllowOvernight: r.cfg.AllowOvernight}
	for _, d := range r.drivers {
		r.sweepDriver(ctx, d, ev, now, &sum)
	}

	sum.Duration = time.Since(now)
	r.publish(eventbus.Event{Type: eventbus.TypeSweepCompleted, Data: sum})
	r.log.Info("sweep completed",
		logx.Bool("dry_run", sum.DryRun),
		logx.Int("actions", len(sum.Actions)),
		logx.Int("errors", len(sum.Errors)),
		logx.Duration("took", sum.Duration))
	return sum
}

func (r *Runner) sweepDriver(ctx context.Context, d driver.Driver, ev schedule.Evaluator, now time.Time, sum *Summary) {
	kind := d.Kind()
	counts := sum.Kinds[kind]
	defer func() { sum.Kinds[kind] = counts }()

	resources, err := d.List(ctx)
	if err != nil {
		msg := fmt.Sprintf("Error listing %s resources: %v", kind, err)
		r.log.Error("resource listing failed", logx.String("kind", kind), logx.Err(err))
		sum.Errors = append(sum.Errors, msg)
		return
	}

	for _, res := range resources {
		counts.Processed++

		if res.TagsErr != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("Error reading tags for %s resource %s: %v", kind, res.ID, res.TagsErr))
			continue
		}
		raw, ok := res.Tags.Lookup(r.cfg.tagKey())
		if !ok || raw == "" {
			continue
		}

		decision, err := ev.Decide(raw, now)
		if err != nil {
			// Malformed schedules skip the resource; they are not batch
			// errors.
			r.log.Warn("unusable schedule tag",
				logx.String("kind", kind), logx.String("id", res.ID), logx.Err(err))
			continue
		}

		switch {
		case decision == schedule.Start && res.State == driver.StateStopped:
			if err := r.act(ctx, d.Start, res.ID); err != nil {
				sum.Errors = append(sum.Errors, fmt.Sprintf("Error processing %s resource %s: %v", kind, res.ID, err))
				continue
			}
			counts.Started++
			r.record(sum, kind, res.ID, schedule.Start)

		case decision == schedule.Stop && res.State == driver.StateRunning:
			if r.prot.Exempt(res.Tags) {
				r.log.Info("resource protected from stopping",
					logx.String("kind", kind), logx.String("id", res.ID))
				r.publish(eventbus.Event{
					Type: eventbus.TypeActionSkipped,
					Data: Action{Kind: kind, ID: res.ID, Decision: schedule.Stop.String()},
				})
				continue
			}
			if err := r.act(ctx, d.Stop, res.ID); err != nil {
				sum.Errors = append(sum.Errors, fmt.Sprintf("Error processing %s resource %s: %v", kind, res.ID, err))
				continue
			}
			counts.Stopped++
			r.record(sum, kind, res.ID, schedule.Stop)
		}
	}
}

func (r *Runner) act(ctx context.Context, fn func(context.Context, string) error, id string) error {
	if r.cfg.DryRun {
		return nil
	}
	return fn(ctx, id)
}

func (r *Runner) record(sum *Summary, kind, id string, d schedule.Decision) {
	verb := "Started"
	if d == schedule.Stop {
		verb = "Stopped"
	}
	sum.Actions = append(sum.Actions, fmt.Sprintf("%s %s resource: %s", verb, kind, id))
	r.publish(eventbus.Event{
		Type: eventbus.TypeActionTaken,
		Data: Action{Kind: kind, ID: id, Decision: d.String()},
	})
	r.log.Info("action taken",
		logx.String("kind", kind), logx.String("id", id),
		logx.String("decision", d.String()), logx.Bool("dry_run", r.cfg.DryRun))
}

func (r *Runner) publish(e eventbus.Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}
