// Package bot runs the paper-trading loop: for every iteration and symbol it
// fetches a price series, computes indicators, evaluates the strategy and
// executes the resulting signal against the ledger.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"ganaka-trader/internal/execution"
	"ganaka-trader/internal/indicator"
	"ganaka-trader/internal/logger"
	"ganaka-trader/internal/marketdata"
	"ganaka-trader/internal/markethours"
	"ganaka-trader/internal/metrics"
	"ganaka-trader/internal/model"
	"ganaka-trader/internal/portfolio"
	"ganaka-trader/internal/strategy"

	"github.com/google/uuid"
)

// EventSink receives bot events. Publish must not block.
type EventSink interface {
	Publish(ev model.Event) bool
}

// Options controls the session loop.
type Options struct {
	Symbols         []string
	Iterations      int           // 0 runs until ctx is cancelled
	Interval        time.Duration // wait between iterations
	HistoryLen      int           // prices requested per evaluation
	MarketHoursOnly bool          // skip iterations while the market is closed
}

// Deps are the collaborators of a Session. Provider, Indicators, Strategy,
// Executor and Ledger are required; the rest may be nil.
type Deps struct {
	Provider   marketdata.Provider
	Indicators *indicator.Engine
	Strategy   *strategy.Engine
	Executor   execution.Executor
	Ledger     *portfolio.Ledger

	Events   EventSink
	Metrics  *metrics.Metrics
	Health   *metrics.HealthStatus
	Calendar *markethours.Calendar
	Logger   *slog.Logger
}

// Session is one paper-trading run over a fixed symbol list.
type Session struct {
	id   string
	opts Options
	deps Deps
	log  *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// StepResult is the outcome of evaluating one symbol.
type StepResult struct {
	Signal strategy.Signal
	Quote  float64         // execution price; 0 when the signal was HOLD
	Fill   *execution.Fill // nil for HOLD and ledger no-ops
}

// New validates deps and options and creates a Session.
func New(opts Options, deps Deps) (*Session, error) {
	if deps.Provider == nil {
		return nil, errors.New("bot: provider is required")
	}
	if len(opts.Symbols) == 0 {
		return nil, errors.New("bot: no symbols")
	}
	return newSession(opts, deps)
}

func newSession(opts Options, deps Deps) (*Session, error) {
	switch {
	case deps.Indicators == nil:
		return nil, errors.New("bot: indicator engine is required")
	case deps.Strategy == nil:
		return nil, errors.New("bot: strategy is required")
	case deps.Executor == nil:
		return nil, errors.New("bot: executor is required")
	case deps.Ledger == nil:
		return nil, errors.New("bot: ledger is required")
	}
	if opts.HistoryLen <= 0 {
		opts.HistoryLen = deps.Indicators.Config().MinHistory()
	}
	if opts.MarketHoursOnly && deps.Calendar == nil {
		deps.Calendar = markethours.NewNSECalendar()
	}
	l := deps.Logger
	if l == nil {
		l = slog.Default()
	}
	id := uuid.NewString()
	return &Session{
		id:    id,
		opts:  opts,
		deps:  deps,
		log:   l.With(slog.String("session", id)),
		now:   time.Now,
		sleep: sleepCtx,
	}, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Ledger returns the session ledger.
func (s *Session) Ledger() *portfolio.Ledger { return s.deps.Ledger }

// Run executes the configured iterations and returns the final summary.
// Cancelling ctx ends the session early; the final summary is still
// produced and published, and Run returns nil.
func (s *Session) Run(ctx context.Context) (portfolio.Summary, error) {
	s.log.Info("trading session started",
		"symbols", s.opts.Symbols,
		"iterations", s.opts.Iterations,
		"initial_balance", s.deps.Ledger.InitialBalance().StringFixed(2),
		"max_position_size", s.deps.Ledger.MaxPositionSize().StringFixed(2),
		"strategy", s.deps.Strategy.Name(),
		"fallback_mode", s.deps.Strategy.Mode(),
	)

	for i := 1; s.opts.Iterations == 0 || i <= s.opts.Iterations; i++ {
		if ctx.Err() != nil {
			s.log.Warn("session interrupted", "iteration", i)
			break
		}
		s.iterate(ctx, i)

		last := s.opts.Iterations != 0 && i == s.opts.Iterations
		if last {
			break
		}
		if err := s.sleep(ctx, s.opts.Interval); err != nil {
			s.log.Warn("session interrupted while waiting", "iteration", i)
			break
		}
	}

	sum := s.deps.Ledger.Summary()
	s.publish(model.Event{Type: model.EventSummary, TraceID: model.TraceFinal, TS: s.now(), Data: sum})
	s.log.Info("trading session finished",
		"total_value", sum.TotalValue.StringFixed(2),
		"total_return", sum.TotalReturn.StringFixed(2),
		"return_pct", sum.ReturnPct.StringFixed(2),
	)
	return sum, nil
}

func (s *Session) iterate(ctx context.Context, i int) {
	now := s.now()
	if s.deps.Calendar != nil {
		open := s.deps.Calendar.IsOpen(now)
		s.deps.Metrics.SetMarketOpen(open)
		if s.deps.Health != nil {
			s.deps.Health.SetMarketOpen(open)
		}
		if s.opts.MarketHoursOnly && !open {
			s.log.Info("market closed, skipping iteration", "iteration", i, "status", s.deps.Calendar.Status(now))
			return
		}
	}

	s.log.Info("iteration", "n", i, "of", s.opts.Iterations)
	for _, sym := range s.opts.Symbols {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Step(ctx, sym); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("symbol skipped", "symbol", sym, "error", err)
		}
	}

	traceID := fmt.Sprintf("iter-%d", i)
	s.publish(model.Event{Type: model.EventSnapshot, TraceID: traceID, TS: s.now(), Data: s.deps.Ledger.Snapshot()})
	s.publish(model.Event{Type: model.EventSummary, TraceID: traceID, TS: s.now(), Data: s.deps.Ledger.Summary()})
	s.deps.Metrics.IncIteration()
	if s.deps.Health != nil {
		s.deps.Health.RecordIteration(i)
	}
}

// Step runs one evaluation cycle for symbol: history, indicators, signal
// and, for BUY/SELL, a quote and execution. Provider errors are returned
// and leave the ledger untouched.
func (s *Session) Step(ctx context.Context, symbol string) (StepResult, error) {
	start := s.now()
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(symbol, start))
	defer func() { s.deps.Metrics.ObserveCycle(s.now().Sub(start)) }()

	prices, err := s.deps.Provider.History(ctx, symbol, s.opts.HistoryLen)
	if err != nil {
		s.deps.Metrics.IncProviderError(symbol)
		return StepResult{}, fmt.Errorf("history %s: %w", symbol, err)
	}
	set, err := s.deps.Indicators.Compute(prices)
	if err != nil {
		s.deps.Metrics.IncProviderError(symbol)
		return StepResult{}, fmt.Errorf("indicators %s: %w", symbol, err)
	}

	return s.decide(ctx, symbol, set, func(ctx context.Context) (float64, error) {
		q, err := s.deps.Provider.Quote(ctx, symbol)
		if err != nil {
			s.deps.Metrics.IncProviderError(symbol)
			return 0, fmt.Errorf("quote %s: %w", symbol, err)
		}
		return q, nil
	})
}

// decide evaluates set and executes actionable signals at the price
// returned by quote. quote is only called for BUY and SELL.
func (s *Session) decide(ctx context.Context, symbol string, set indicator.Set, quote func(context.Context) (float64, error)) (StepResult, error) {
	log := logger.FromContext(ctx, s.log)
	sig := s.deps.Strategy.Evaluate(symbol, set)
	res := StepResult{Signal: sig}

	log.Info("signal",
		"symbol", symbol,
		"price", round2(set.Price),
		"sma_short", valueAttr(set.SMAShort),
		"sma_long", valueAttr(set.SMALong),
		"rsi", valueAttr(set.RSI),
		"decision", sig.Decision,
		"reason", sig.Reason,
		"substituted", sig.Substituted,
	)
	s.publish(model.Event{Type: model.EventSignal, Symbol: symbol, TraceID: logger.TraceID(ctx), TS: sig.TS, Data: sig})

	if !sig.Actionable() {
		return res, nil
	}

	price, err := quote(ctx)
	if err != nil {
		return res, err
	}
	res.Quote = price

	fill, err := s.deps.Executor.Execute(ctx, sig, price)
	if err != nil {
		return res, err
	}
	if fill == nil {
		s.deps.Metrics.IncNoop(sig.Decision)
		log.Debug("execution no-op", "symbol", symbol, "decision", sig.Decision, "price", round2(price))
		return res, nil
	}
	res.Fill = fill
	s.publish(model.Event{Type: model.EventFill, Symbol: symbol, TraceID: logger.TraceID(ctx), TS: fill.FilledAt, Data: *fill})
	log.Info("filled",
		"symbol", symbol,
		"side", fill.Side,
		"quantity", fill.Quantity,
		"price", fill.FillPrice.StringFixed(2),
		"amount", fill.Amount.StringFixed(2),
		"pnl", fill.PnL.StringFixed(2),
		"cash", s.deps.Ledger.Cash().StringFixed(2),
		"order_id", fill.OrderID,
	)
	return res, nil
}

func (s *Session) publish(ev model.Event) {
	if s.deps.Events != nil {
		s.deps.Events.Publish(ev)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// valueAttr logs an unavailable indicator as null.
func valueAttr(v indicator.Value) any {
	if !v.Ready {
		return nil
	}
	return round2(v.V)
}
