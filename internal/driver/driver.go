// Package driver abstracts the cloud resource APIs the sweep engine acts on.
// Each driver lists tagged resources of one kind and can start or stop them.
package driver

import (
	"context"

	"golang.org/x/time/rate"

	"costguard/internal/tags"
)

// State is the observed state of a cloud resource.
type State int

const (
	StateUnknown State = iota
	StateRunning
	StateStopped
	StateTransitioning
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateTransitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

// Resource is one schedulable cloud resource as observed by a driver.
type Resource struct {
	ID    string
	State State
	Tags  tags.Map

	// TagsErr is set when the resource was listed but its tags could not
	// be fetched (RDS fetches tags per instance). The sweep records it and
	// skips the resource.
	TagsErr error
}

// Driver performs the actual start/stop operations against one resource API.
type Driver interface {
	// Kind names the resource family, e.g. "ec2" or "rds".
	Kind() string
	// List returns the schedulable resources of this kind, already
	// filtered of anything that can never be acted on (terminated
	// instances, Multi-AZ databases).
	List(ctx context.Context) ([]Resource, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
}

// Throttle wraps a driver so all its API calls share one rate limiter.
// ratePerSec <= 0 returns d unchanged.
func Throttle(d Driver, ratePerSec float64) Driver {
	if ratePerSec <= 0 {
		return d
	}
	return &throttled{d: d, lim: rate.NewLimiter(rate.Limit(ratePerSec), 1)}
}

type throttled struct {
	d   Driver
	lim *rate.Limiter
}

func (t *throttled) Kind() string { return t.d.Kind() }

func (t *throttled) List(ctx context.Context) ([]Resource, error) {
	if err := t.lim.Wait(ctx); err != nil {
		return nil, err
	}
	return t.d.List(ctx)
}

func (t *throttled) Start(ctx context.Context, id string) error {
	if err := t.lim.Wait(ctx); err != nil {
		return err
	}
	return t.d.Start(ctx, id)
}

func (t *throttled) Stop(ctx context.Context, id string) error {
	if err := t.lim.Wait(ctx); err != nil {
		return err
	}
	return t.d.Stop(ctx, id)
}
