package storage

import (
	"context"
	"encoding/json"

	"costguard/internal/eventbus"
	"costguard/internal/sweep"
	logx "costguard/pkg/logx"
)

// Recorder subscribes to sweep events and persists them. Storage failures
// are logged and never propagate.
type Recorder struct {
	store Store
	bus   eventbus.Bus
	log   logx.Logger
}

func NewRecorder(store Store, bus eventbus.Bus, log logx.Logger) *Recorder {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Recorder{store: store, bus: bus, log: log}
}

// Run consumes events until ctx is done.
func (r *Recorder) Run(ctx context.Context) error {
	if r.store == nil || r.bus == nil {
		<-ctx.Done()
		return nil
	}
	ch, unsub := r.bus.Subscribe(64, eventbus.TypeSweepCompleted, eventbus.TypeActionTaken)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(ctx, e)
		}
	}
}

// RecordRun persists one summary synchronously. One-shot commands use this
// directly since they have no event loop.
func (r *Recorder) RecordRun(ctx context.Context, sum sweep.Summary) {
	if r.store == nil {
		return
	}
	detail, _ := json.Marshal(sum)
	totals := sum.Totals()
	err := r.store.AppendRun(ctx, RunRecord{
		At:         sum.Time,
		DryRun:     sum.DryRun,
		Processed:  totals.Processed,
		Started:    totals.Started,
		Stopped:    totals.Stopped,
		Errors:     len(sum.Errors),
		TookMS:     sum.Duration.Milliseconds(),
		DetailJSON: string(detail),
	})
	if err != nil {
		r.log.Warn("run record not persisted", logx.Err(err))
	}
}

func (r *Recorder) handle(ctx context.Context, e eventbus.Event) {
	switch e.Type {
	case eventbus.TypeSweepCompleted:
		sum, ok := e.Data.(sweep.Summary)
		if !ok {
			return
		}
		r.RecordRun(ctx, sum)
	case eventbus.TypeActionTaken:
		act, ok := e.Data.(sweep.Action)
		if !ok {
			return
		}
		err := r.store.AppendAction(ctx, ActionRecord{
			At:         e.Time,
			Kind:       act.Kind,
			ResourceID: act.ID,
			Action:     act.Decision,
		})
		if err != nil {
			r.log.Warn("action record not persisted", logx.Err(err))
		}
	}
}
