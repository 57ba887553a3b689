// Package eventbus is a small in-memory fanout used to decouple the sweep
// engine from notification, storage and telemetry consumers.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Well-known event types published across the daemon.
const (
	TypeSweepStarted   = "sweep.started"
	TypeSweepCompleted = "sweep.completed"
	TypeActionTaken    = "sweep.action"
	TypeActionSkipped  = "sweep.skipped"
	TypeBudgetAlert    = "budget.alert"
	TypeLifecycleDone  = "lifecycle.completed"
	TypeConfigApplied  = "config.applied"
)

// Event is a lightweight signal. Payloads should be small value types.
//
// Contract:
//   - Publish never blocks.
//   - Subscribers get buffered channels; slow consumers lose events rather
//     than stalling the publisher.
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(e Event)
	// Subscribe returns a channel of events and an unsubscribe func. When
	// types are given, only matching events are delivered.
	Subscribe(buffer int, types ...string) (<-chan Event, func())
	// Dropped reports how many events were discarded due to full
	// subscriber buffers, for telemetry.
	Dropped() uint64
}

// New returns the in-memory bus. It owns no goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]*subscriber{}}
}

type subscriber struct {
	ch    chan Event
	types map[string]struct{} // nil means all
}

func (s *subscriber) wants(t string) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[t]
	return ok
}

type memBus struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscriber
	seq     atomic.Uint64
	dropped atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	// Snapshot so we never attempt sends under the lock.
	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(e.Type) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		// Unsubscribe may close the channel concurrently; a send panic
		// is absorbed and counted as a drop.
		func() {
			defer func() {
				if recover() != nil {
					b.dropped.Add(1)
				}
			}()
			select {
			case s.ch <- e:
			default:
				b.dropped.Add(1)
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int, types ...string) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	s := &subscriber{ch: make(chan Event, buffer)}
	if len(types) > 0 {
		s.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}

	id := b.seq.Add(1)
	b.mu.Lock()
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, unsub
}

func (b *memBus) Dropped() uint64 { return b.dropped.Load() }
