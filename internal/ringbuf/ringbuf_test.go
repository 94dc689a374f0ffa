package ringbuf

import (
	"sync"
	"testing"
	"time"

	"ganaka-trader/internal/model"
)

func TestRing_PushPop(t *testing.T) {
	r := New(4)

	if !r.Push(model.Quote{Symbol: "TCS", Price: 100}) || !r.Push(model.Quote{Symbol: "INFY", Price: 200}) {
		t.Fatal("push should succeed")
	}
	if r.Len() != 2 {
		t.Fatalf("expected len=2, got %d", r.Len())
	}

	got, ok := r.Pop()
	if !ok || got.Symbol != "TCS" {
		t.Fatalf("expected TCS, got %q ok=%v", got.Symbol, ok)
	}
	got, ok = r.Pop()
	if !ok || got.Symbol != "INFY" {
		t.Fatalf("expected INFY, got %q ok=%v", got.Symbol, ok)
	}
	if _, ok := r.Pop(); ok {
		t.Fatal("pop from empty should return false")
	}
}

func TestRing_Overflow(t *testing.T) {
	r := New(2)
	r.Push(model.Quote{Symbol: "A"})
	r.Push(model.Quote{Symbol: "B"})

	if r.Push(model.Quote{Symbol: "C"}) {
		t.Fatal("push to full buffer should return false")
	}
	if r.Overflow() != 1 {
		t.Fatalf("expected overflow=1, got %d", r.Overflow())
	}
}

func TestRing_Wraparound(t *testing.T) {
	r := New(4)
	for round := 0; round < 5; round++ {
		for i := 0; i < 4; i++ {
			if !r.Push(model.Quote{Price: float64(round*10 + i)}) {
				t.Fatalf("round %d push %d failed", round, i)
			}
		}
		for i := 0; i < 4; i++ {
			q, ok := r.Pop()
			if !ok || q.Price != float64(round*10+i) {
				t.Fatalf("round %d pop %d: got %v ok=%v", round, i, q.Price, ok)
			}
		}
	}
}

func TestRing_Drain(t *testing.T) {
	r := New(8)
	for i := 0; i < 5; i++ {
		r.Push(model.Quote{Price: float64(i)})
	}

	dst := make([]model.Quote, 3)
	if n := r.Drain(dst); n != 3 || dst[2].Price != 2 {
		t.Fatalf("first drain: n=%d last=%v", n, dst[2].Price)
	}
	if n := r.Drain(dst); n != 2 || dst[1].Price != 4 {
		t.Fatalf("second drain: n=%d last=%v", n, dst[1].Price)
	}
	if n := r.Drain(dst); n != 0 {
		t.Fatalf("drain of empty ring returned %d", n)
	}
}

func TestRing_SPSC_Concurrent(t *testing.T) {
	const count = 100_000
	r := New(1024)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < count; i++ {
			for !r.Push(model.Quote{Price: float64(i)}) {
			}
		}
	}()

	received := make([]float64, 0, count)
	go func() {
		defer wg.Done()
		for len(received) < count {
			if q, ok := r.Pop(); ok {
				received = append(received, q.Price)
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("SPSC test timed out")
	}

	for i, v := range received {
		if v != float64(i) {
			t.Fatalf("at index %d: expected %d, got %v", i, i, v)
		}
	}
}

func TestRing_NextPow2(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {5, 8}, {7, 8}, {8, 8}, {9, 16}, {1023, 1024},
	}
	for _, tc := range cases {
		if got := nextPow2(tc.in); got != tc.want {
			t.Errorf("nextPow2(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
