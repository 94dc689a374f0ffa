package indicator

// History is a bounded price history backed by a preallocated circular
// buffer. Oldest prices are overwritten once capacity is reached.
type History struct {
	buf   []float64
	idx   int // next write position
	count int // valid entries, capped at len(buf)
}

// NewHistory creates a History holding at most capacity prices.
// Capacity below 1 is raised to 1.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]float64, capacity)}
}

// Push appends a price, evicting the oldest one when full.
func (h *History) Push(price float64) {
	h.buf[h.idx] = price
	h.idx = (h.idx + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// Len returns the number of stored prices.
func (h *History) Len() int { return h.count }

// Cap returns the maximum number of stored prices.
func (h *History) Cap() int { return len(h.buf) }

// Last returns the most recent price and false if empty.
func (h *History) Last() (float64, bool) {
	if h.count == 0 {
		return 0, false
	}
	i := (h.idx - 1 + len(h.buf)) % len(h.buf)
	return h.buf[i], true
}

// Prices returns a chronological copy of the stored prices.
func (h *History) Prices() []float64 {
	out := make([]float64, h.count)
	start := (h.idx - h.count + len(h.buf)) % len(h.buf)
	for i := 0; i < h.count; i++ {
		out[i] = h.buf[(start+i)%len(h.buf)]
	}
	return out
}

// Reset clears the history for reuse.
func (h *History) Reset() {
	h.idx = 0
	h.count = 0
	for i := range h.buf {
		h.buf[i] = 0
	}
}
