// Package bus fans bot events out to side-channel consumers (metrics,
// Redis, WebSocket hub, notifiers). Publishing never blocks the trading
// loop: a full queue drops the event for that consumer.
package bus

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"ganaka-trader/internal/model"
)

// FanOut broadcasts events from a single input queue to N subscribers.
type FanOut struct {
	mu      sync.RWMutex
	input   chan model.Event
	outputs []subscriber
	bufSize int
	closed  bool

	dropped atomic.Int64

	// OnDrop is called when an event is dropped for a subscriber.
	OnDrop func(subscriber string, ev model.Event)
}

type subscriber struct {
	name string
	ch   chan model.Event
}

// New creates a FanOut whose input queue and subscriber channels hold
// bufSize events each.
func New(bufSize int) *FanOut {
	if bufSize <= 0 {
		bufSize = 1
	}
	return &FanOut{
		input:   make(chan model.Event, bufSize),
		bufSize: bufSize,
	}
}

// Subscribe creates and returns a named output channel. Subscribe before
// Run starts so no events are missed.
func (f *FanOut) Subscribe(name string) <-chan model.Event {
	ch := make(chan model.Event, f.bufSize)
	f.mu.Lock()
	f.outputs = append(f.outputs, subscriber{name: name, ch: ch})
	f.mu.Unlock()
	return ch
}

// Publish enqueues ev without blocking. It reports false when the input
// queue is full or the bus has stopped.
func (f *FanOut) Publish(ev model.Event) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return false
	}
	select {
	case f.input <- ev:
		return true
	default:
		f.drop("input", ev)
		return false
	}
}

// Dropped returns the total number of dropped deliveries.
func (f *FanOut) Dropped() int64 { return f.dropped.Load() }

// Run delivers queued events to all subscribers until ctx is cancelled,
// then drains the queue and closes every subscriber channel.
func (f *FanOut) Run(ctx context.Context) {
	defer f.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-f.input:
			f.deliver(ev)
		}
	}
}

func (f *FanOut) deliver(ev model.Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sub := range f.outputs {
		select {
		case sub.ch <- ev:
		default:
			f.drop(sub.name, ev)
		}
	}
}

func (f *FanOut) drop(name string, ev model.Event) {
	f.dropped.Add(1)
	if f.OnDrop != nil {
		f.OnDrop(name, ev)
		return
	}
	log.Printf("[bus] %s queue full, dropping %s event for %s", name, ev.Type, ev.Symbol)
}

func (f *FanOut) shutdown() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	// Publish no longer sends, so the remaining queue can be flushed.
	for {
		select {
		case ev := <-f.input:
			f.deliver(ev)
		default:
			f.mu.RLock()
			for _, sub := range f.outputs {
				close(sub.ch)
			}
			f.mu.RUnlock()
			return
		}
	}
}

// ChannelStat reports saturation of one subscriber channel.
type ChannelStat struct {
	Name string
	Len  int
	Cap  int
}

// ChannelStats returns (length, capacity) for each subscriber channel.
func (f *FanOut) ChannelStats() []ChannelStat {
	f.mu.RLock()
	defer f.mu.RUnlock()
	stats := make([]ChannelStat, len(f.outputs))
	for i, sub := range f.outputs {
		stats[i] = ChannelStat{Name: sub.name, Len: len(sub.ch), Cap: cap(sub.ch)}
	}
	return stats
}
