package bot

import (
	"context"
	"fmt"

	"ganaka-trader/internal/logger"
	"ganaka-trader/internal/model"
	"ganaka-trader/internal/portfolio"
)

// Backtest drives the evaluate/execute path from a stream of archived
// quotes. Each quote extends the symbol's bounded history and is also the
// execution price for any signal it triggers.
type Backtest struct {
	s *Session
}

// BacktestStats counts what a backtest processed.
type BacktestStats struct {
	Quotes   int
	Signals  map[string]int // by decision
	Fills    int
	Rejected int // quotes with invalid prices
}

// NewBacktest creates a backtest. deps.Provider is not used.
func NewBacktest(deps Deps) (*Backtest, error) {
	s, err := newSession(Options{}, deps)
	if err != nil {
		return nil, err
	}
	return &Backtest{s: s}, nil
}

// Run consumes quotes until the channel is closed or ctx is cancelled and
// returns the final summary.
func (b *Backtest) Run(ctx context.Context, quotes <-chan model.Quote) (portfolio.Summary, BacktestStats, error) {
	stats := BacktestStats{Signals: make(map[string]int)}
	s := b.s

loop:
	for {
		select {
		case <-ctx.Done():
			s.log.Warn("backtest interrupted", "quotes", stats.Quotes)
			break loop
		case q, ok := <-quotes:
			if !ok {
				break loop
			}
			stats.Quotes++
			if err := b.step(ctx, q, &stats); err != nil {
				stats.Rejected++
				s.log.Warn("quote rejected", "symbol", q.Symbol, "ts", q.TS, "error", err)
			}
		}
	}

	sum := s.deps.Ledger.Summary()
	s.publish(model.Event{Type: model.EventSummary, TraceID: model.TraceFinal, TS: s.now(), Data: sum})
	return sum, stats, nil
}

func (b *Backtest) step(ctx context.Context, q model.Quote, stats *BacktestStats) error {
	s := b.s
	start := s.now()
	defer func() { s.deps.Metrics.ObserveCycle(s.now().Sub(start)) }()

	set, err := s.deps.Indicators.Update(q.Symbol, q.Price)
	if err != nil {
		return fmt.Errorf("indicators %s: %w", q.Symbol, err)
	}
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(q.Symbol, q.TS))
	res, err := s.decide(ctx, q.Symbol, set, func(context.Context) (float64, error) {
		return q.Price, nil
	})
	stats.Signals[string(res.Signal.Decision)]++
	if res.Fill != nil {
		stats.Fills++
	}
	return err
}
