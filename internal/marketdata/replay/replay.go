// Package replay provides a quote replayer that reads archived quotes and
// emits them at configurable speed for backtesting.
package replay

import (
	"context"
	"log"
	"sort"
	"time"

	"ganaka-trader/internal/model"
)

// maxGap caps the simulated wait between two quotes.
const maxGap = 5 * time.Second

// Replayer reads archived quotes and replays them at a configurable speed
// multiplier.
type Replayer struct {
	reader model.QuoteReader
}

// New creates a Replayer backed by a quote reader.
func New(reader model.QuoteReader) *Replayer {
	return &Replayer{reader: reader}
}

// Run replays quotes for symbols (all archived symbols when empty),
// emitting them into outCh in timestamp order.
// speed controls the playback rate: 1.0 = real-time, 10.0 = 10x, 0 = as fast as possible.
// fromTS filters quotes to those after this Unix timestamp (0 = all).
func (r *Replayer) Run(ctx context.Context, symbols []string, fromTS int64, speed float64, outCh chan<- model.Quote) error {
	var all []model.Quote
	if len(symbols) == 0 {
		quotes, err := r.reader.ReadQuotes(ctx, "", fromTS)
		if err != nil {
			return err
		}
		all = quotes
	} else {
		for _, sym := range symbols {
			quotes, err := r.reader.ReadQuotes(ctx, sym, fromTS)
			if err != nil {
				return err
			}
			all = append(all, quotes...)
		}
	}

	if len(all) == 0 {
		log.Println("[replay] no quotes found in archive")
		return nil
	}

	// Interleaved across symbols; keep per-symbol order stable.
	sort.SliceStable(all, func(i, j int) bool { return all[i].TS.Before(all[j].TS) })

	log.Printf("[replay] loaded %d quotes, speed=%.1fx", len(all), speed)

	var prevTS time.Time
	emitted := 0

	for _, q := range all {
		select {
		case <-ctx.Done():
			log.Printf("[replay] cancelled after %d quotes", emitted)
			return ctx.Err()
		default:
		}

		if speed > 0 && !prevTS.IsZero() {
			if gap := q.TS.Sub(prevTS); gap > 0 {
				scaled := time.Duration(float64(gap) / speed)
				if scaled > maxGap {
					scaled = maxGap
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(scaled):
				}
			}
		}
		prevTS = q.TS

		select {
		case <-ctx.Done():
			return ctx.Err()
		case outCh <- q:
		}
		emitted++
	}

	log.Printf("[replay] completed: %d quotes replayed", emitted)
	return nil
}
