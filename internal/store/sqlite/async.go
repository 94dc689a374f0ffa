package sqlite

import (
	"context"
	"log"
	"time"

	"ganaka-trader/internal/model"
	"ganaka-trader/internal/ringbuf"
)

const (
	defaultFlushInterval = time.Second
	defaultBatchSize     = 256
)

// AsyncWriter queues quotes in a lock-free ring and archives them in batches
// from Run. WriteQuote never blocks; quotes are dropped when the ring is full.
// WriteQuote must be called from a single goroutine.
type AsyncWriter struct {
	w     *Writer
	ring  *ringbuf.Ring
	every time.Duration
	batch []model.Quote
}

// NewAsyncWriter wraps w with a ring of the given capacity.
func NewAsyncWriter(w *Writer, capacity int, flushEvery time.Duration) *AsyncWriter {
	if flushEvery <= 0 {
		flushEvery = defaultFlushInterval
	}
	return &AsyncWriter{
		w:     w,
		ring:  ringbuf.New(capacity),
		every: flushEvery,
		batch: make([]model.Quote, defaultBatchSize),
	}
}

// WriteQuote enqueues q. The error is always nil; overflow is reported by
// Dropped.
func (a *AsyncWriter) WriteQuote(_ context.Context, q model.Quote) error {
	a.ring.Push(q)
	return nil
}

// Dropped returns the number of quotes lost to a full ring.
func (a *AsyncWriter) Dropped() uint64 { return a.ring.Overflow() }

// Pending returns the number of queued quotes.
func (a *AsyncWriter) Pending() int { return a.ring.Len() }

// Run flushes queued quotes every interval until ctx is cancelled, then
// flushes whatever is left.
func (a *AsyncWriter) Run(ctx context.Context) {
	ticker := time.NewTicker(a.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.Flush(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			a.Flush(ctx)
		}
	}
}

// Flush writes every queued quote. Consumer side only.
func (a *AsyncWriter) Flush(ctx context.Context) {
	for {
		n := a.ring.Drain(a.batch)
		if n == 0 {
			return
		}
		if err := a.w.WriteBatch(ctx, a.batch[:n]); err != nil {
			log.Printf("[sqlite] batch of %d quotes failed: %v", n, err)
		}
		if n < len(a.batch) {
			return
		}
	}
}

// Close releases the underlying writer. Call after Run has returned.
func (a *AsyncWriter) Close() error { return a.w.Close() }
