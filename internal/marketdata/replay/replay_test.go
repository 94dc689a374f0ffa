package replay

import (
	"context"
	"testing"
	"time"

	"ganaka-trader/internal/model"
)

type fakeReader struct {
	quotes map[string][]model.Quote
}

func (f *fakeReader) ReadQuotes(_ context.Context, symbol string, afterTS int64) ([]model.Quote, error) {
	var out []model.Quote
	for sym, qs := range f.quotes {
		if symbol != "" && sym != symbol {
			continue
		}
		for _, q := range qs {
			if q.TS.Unix() > afterTS {
				out = append(out, q)
			}
		}
	}
	return out, nil
}

func (f *fakeReader) Symbols(context.Context) ([]string, error) { return nil, nil }
func (f *fakeReader) Close() error                              { return nil }

func TestReplayer_OrdersAcrossSymbols(t *testing.T) {
	base := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)
	at := func(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

	r := New(&fakeReader{quotes: map[string][]model.Quote{
		"TCS":  {{Symbol: "TCS", Price: 1, TS: at(1)}, {Symbol: "TCS", Price: 3, TS: at(3)}},
		"INFY": {{Symbol: "INFY", Price: 2, TS: at(2)}, {Symbol: "INFY", Price: 4, TS: at(4)}},
	}})

	out := make(chan model.Quote, 10)
	if err := r.Run(context.Background(), []string{"TCS", "INFY"}, 0, 0, out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(out)

	var got []float64
	for q := range out {
		got = append(got, q.Price)
	}
	want := []float64{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %d quotes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReplayer_FromTSFilter(t *testing.T) {
	base := time.Unix(1_700_000_000, 0).UTC()
	r := New(&fakeReader{quotes: map[string][]model.Quote{
		"TCS": {
			{Symbol: "TCS", Price: 1, TS: base},
			{Symbol: "TCS", Price: 2, TS: base.Add(time.Minute)},
		},
	}})

	out := make(chan model.Quote, 10)
	if err := r.Run(context.Background(), nil, base.Unix(), 0, out); err != nil {
		t.Fatal(err)
	}
	close(out)
	n := 0
	for range out {
		n++
	}
	if n != 1 {
		t.Errorf("expected 1 quote after fromTS, got %d", n)
	}
}

func TestReplayer_Cancelled(t *testing.T) {
	r := New(&fakeReader{quotes: map[string][]model.Quote{
		"TCS": {{Symbol: "TCS", Price: 1, TS: time.Now()}},
	}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan model.Quote) // unbuffered, nobody reads
	if err := r.Run(ctx, nil, 0, 0, out); err == nil {
		t.Error("expected context error")
	}
}

func TestReplayer_EmptyArchive(t *testing.T) {
	r := New(&fakeReader{})
	if err := r.Run(context.Background(), nil, 0, 1, make(chan model.Quote)); err != nil {
		t.Errorf("expected nil for empty archive, got %v", err)
	}
}
