package gateway

import "sync"

type backlogEntry struct {
	Seq    int64
	Symbol string
	Data   []byte // encoded envelope
}

// Backlog is a fixed-size circular buffer of recent envelopes so that a
// reconnecting client can catch up from its last seen sequence number.
type Backlog struct {
	mu   sync.RWMutex
	buf  []backlogEntry
	pos  int // next write position
	full bool
}

// NewBacklog creates a backlog holding up to capacity envelopes.
func NewBacklog(capacity int) *Backlog {
	if capacity <= 0 {
		capacity = 256
	}
	return &Backlog{buf: make([]backlogEntry, capacity)}
}

// Push appends an envelope, overwriting the oldest when full.
func (b *Backlog) Push(seq int64, symbol string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf[b.pos] = backlogEntry{Seq: seq, Symbol: symbol, Data: data}
	b.pos = (b.pos + 1) % len(b.buf)
	if b.pos == 0 {
		b.full = true
	}
}

// Since returns entries with Seq > seq, oldest first.
func (b *Backlog) Since(seq int64) []backlogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := b.pos
	start := 0
	if b.full {
		n = len(b.buf)
		start = b.pos
	}
	var out []backlogEntry
	for i := 0; i < n; i++ {
		e := b.buf[(start+i)%len(b.buf)]
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of buffered envelopes.
func (b *Backlog) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.full {
		return len(b.buf)
	}
	return b.pos
}
