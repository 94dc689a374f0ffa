package bot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"ganaka-trader/internal/execution"
	"ganaka-trader/internal/indicator"
	"ganaka-trader/internal/markethours"
	"ganaka-trader/internal/model"
	"ganaka-trader/internal/portfolio"
	"ganaka-trader/internal/strategy"

	"github.com/shopspring/decimal"
)

// ─── Test doubles ───

type scriptedProvider struct {
	mu      sync.Mutex
	history map[string][]float64
	quotes  map[string]float64
	fail    map[string]error
}

func (p *scriptedProvider) History(_ context.Context, symbol string, n int) ([]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail[symbol]; err != nil {
		return nil, err
	}
	h := p.history[symbol]
	if len(h) > n {
		h = h[len(h)-n:]
	}
	return append([]float64(nil), h...), nil
}

func (p *scriptedProvider) Quote(_ context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quotes[symbol], nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recordingSink) Publish(ev model.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return true
}

func (r *recordingSink) ofType(t model.EventType) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func series(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDeps(t *testing.T, p *scriptedProvider, mode strategy.FallbackMode) (Deps, *recordingSink) {
	t.Helper()
	ledger, err := portfolio.NewLedger(decimal.NewFromInt(100000), decimal.NewFromInt(10000))
	if err != nil {
		t.Fatal(err)
	}
	sink := &recordingSink{}
	return Deps{
		Provider:   p,
		Indicators: indicator.NewEngine(indicator.DefaultConfig(), 50),
		Strategy:   strategy.NewEngine("test", strategy.NewCascade(strategy.DefaultRules(strategy.DefaultThresholds())), mode),
		Executor:   execution.NewPaperExecutor(ledger, 0),
		Ledger:     ledger,
		Events:     sink,
		Logger:     quietLogger(),
	}, sink
}

// ─── Step ───

func TestStep_BuyThenSell(t *testing.T) {
	p := &scriptedProvider{
		history: map[string][]float64{"RELIANCE": series(100, 1, 60)},
		quotes:  map[string]float64{"RELIANCE": 100},
	}
	deps, sink := newDeps(t, p, strategy.FallbackNeutral)
	s, err := New(Options{Symbols: []string{"RELIANCE"}, HistoryLen: 50}, deps)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	res, err := s.Step(ctx, "RELIANCE")
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if res.Signal.Decision != strategy.DecisionBuy || res.Signal.Rule != strategy.RuleBullishTrend {
		t.Fatalf("expected bullish BUY, got %+v", res.Signal)
	}
	if res.Fill == nil || res.Fill.Quantity != 100 {
		t.Fatalf("expected 100-share fill, got %+v", res.Fill)
	}
	if !deps.Ledger.Cash().Equal(decimal.NewFromInt(90000)) {
		t.Errorf("cash = %s, want 90000", deps.Ledger.Cash())
	}

	p.history["RELIANCE"] = series(200, -1, 60)
	p.quotes["RELIANCE"] = 110
	res, err = s.Step(ctx, "RELIANCE")
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if res.Signal.Decision != strategy.DecisionSell || res.Fill == nil {
		t.Fatalf("expected SELL fill, got %+v", res)
	}
	if !res.Fill.PnL.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("pnl = %s, want 1000", res.Fill.PnL)
	}
	if !deps.Ledger.Cash().Equal(decimal.NewFromInt(101000)) {
		t.Errorf("cash = %s, want 101000", deps.Ledger.Cash())
	}

	if n := len(sink.ofType(model.EventSignal)); n != 2 {
		t.Errorf("signal events = %d, want 2", n)
	}
	fills := sink.ofType(model.EventFill)
	if len(fills) != 2 || fills[0].TraceID == "" || !strings.HasPrefix(fills[0].TraceID, "RELIANCE-") {
		t.Errorf("unexpected fill events %+v", fills)
	}
}

func TestStep_HoldSkipsQuote(t *testing.T) {
	p := &scriptedProvider{
		history: map[string][]float64{"TCS": {100, 101, 102}},
		quotes:  map[string]float64{}, // zero quote would be rejected if used
	}
	deps, _ := newDeps(t, p, strategy.FallbackHold)
	s, _ := New(Options{Symbols: []string{"TCS"}}, deps)

	res, err := s.Step(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if res.Signal.Decision != strategy.DecisionHold || res.Signal.Reason != "insufficient history" {
		t.Errorf("expected insufficient-history HOLD, got %+v", res.Signal)
	}
	if res.Quote != 0 || res.Fill != nil {
		t.Errorf("HOLD must not fetch a quote or fill: %+v", res)
	}
}

func TestStep_NoopWhenPositionOpen(t *testing.T) {
	p := &scriptedProvider{
		history: map[string][]float64{"INFY": series(100, 1, 60)},
		quotes:  map[string]float64{"INFY": 100},
	}
	deps, sink := newDeps(t, p, strategy.FallbackNeutral)
	s, _ := New(Options{Symbols: []string{"INFY"}}, deps)

	s.Step(context.Background(), "INFY")
	res, err := s.Step(context.Background(), "INFY")
	if err != nil {
		t.Fatal(err)
	}
	if res.Signal.Decision != strategy.DecisionBuy || res.Fill != nil {
		t.Errorf("second BUY should be a ledger no-op, got %+v", res)
	}
	if n := len(sink.ofType(model.EventFill)); n != 1 {
		t.Errorf("fill events = %d, want 1", n)
	}
}

func TestStep_ProviderError(t *testing.T) {
	p := &scriptedProvider{fail: map[string]error{"SBIN": errors.New("vendor down")}}
	deps, _ := newDeps(t, p, strategy.FallbackNeutral)
	s, _ := New(Options{Symbols: []string{"SBIN"}}, deps)

	if _, err := s.Step(context.Background(), "SBIN"); err == nil || !strings.Contains(err.Error(), "vendor down") {
		t.Errorf("expected provider error, got %v", err)
	}
}

// ─── Run ───

func TestRun_IterationsAndFinalSummary(t *testing.T) {
	p := &scriptedProvider{
		history: map[string][]float64{
			"RELIANCE": series(100, 1, 60),
			"TCS":      series(200, -1, 60),
		},
		quotes: map[string]float64{"RELIANCE": 100, "TCS": 150},
		fail:   map[string]error{"INFY": errors.New("no data")},
	}
	deps, sink := newDeps(t, p, strategy.FallbackNeutral)
	s, err := New(Options{Symbols: []string{"RELIANCE", "INFY", "TCS"}, Iterations: 2}, deps)
	if err != nil {
		t.Fatal(err)
	}
	var waits int
	s.sleep = func(context.Context, time.Duration) error { waits++; return nil }

	sum, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if waits != 1 {
		t.Errorf("waits = %d, want 1 (none after the last iteration)", waits)
	}
	if sum.OpenPositions != 1 || !sum.Cash.Equal(decimal.NewFromInt(90000)) {
		t.Errorf("unexpected summary %+v", sum)
	}
	if !sum.TotalValue.Equal(decimal.NewFromInt(100000)) || !sum.Profitable() {
		t.Errorf("total = %s, profitable = %v", sum.TotalValue, sum.Profitable())
	}

	// RELIANCE and TCS evaluated twice each; INFY skipped.
	if n := len(sink.ofType(model.EventSignal)); n != 4 {
		t.Errorf("signal events = %d, want 4", n)
	}
	if n := len(sink.ofType(model.EventSnapshot)); n != 2 {
		t.Errorf("snapshot events = %d, want 2", n)
	}
	sums := sink.ofType(model.EventSummary)
	if len(sums) != 3 || sums[2].TraceID != model.TraceFinal {
		t.Errorf("expected two iteration summaries and a final one, got %+v", sums)
	}
}

func TestRun_CancelledStillSummarizes(t *testing.T) {
	p := &scriptedProvider{history: map[string][]float64{"ITC": series(100, 1, 60)}}
	deps, sink := newDeps(t, p, strategy.FallbackNeutral)
	s, _ := New(Options{Symbols: []string{"ITC"}, Iterations: 0}, deps)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.TotalValue.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("total = %s", sum.TotalValue)
	}
	if n := len(sink.ofType(model.EventSignal)); n != 0 {
		t.Errorf("no cycle should run, got %d signals", n)
	}
	if sums := sink.ofType(model.EventSummary); len(sums) != 1 || sums[0].TraceID != model.TraceFinal {
		t.Errorf("expected final summary, got %+v", sums)
	}
}

func TestRun_MarketClosedSkipsIteration(t *testing.T) {
	p := &scriptedProvider{history: map[string][]float64{"ITC": series(100, 1, 60)}}
	deps, sink := newDeps(t, p, strategy.FallbackNeutral)
	deps.Calendar = markethours.NewNSECalendar()
	s, _ := New(Options{Symbols: []string{"ITC"}, Iterations: 1, MarketHoursOnly: true}, deps)
	s.now = func() time.Time { return time.Date(2026, 3, 7, 11, 0, 0, 0, markethours.IST) } // Saturday

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(sink.ofType(model.EventSignal)); n != 0 {
		t.Errorf("closed market should skip evaluation, got %d signals", n)
	}
}

func TestNew_Validation(t *testing.T) {
	deps, _ := newDeps(t, &scriptedProvider{}, strategy.FallbackNeutral)
	if _, err := New(Options{}, deps); err == nil {
		t.Error("expected error for empty symbols")
	}
	deps.Ledger = nil
	if _, err := New(Options{Symbols: []string{"X"}}, deps); err == nil {
		t.Error("expected error for missing ledger")
	}
}

// ─── Backtest ───

func TestBacktest_RisingSeries(t *testing.T) {
	deps, sink := newDeps(t, &scriptedProvider{}, strategy.FallbackNeutral)
	deps.Provider = nil
	bt, err := NewBacktest(deps)
	if err != nil {
		t.Fatal(err)
	}

	quotes := make(chan model.Quote, 64)
	base := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)
	for i, px := range series(101, 1, 60) {
		quotes <- model.Quote{Symbol: "HDFC", Exchange: "NSE", Price: px, TS: base.Add(time.Duration(i) * time.Minute)}
	}
	quotes <- model.Quote{Symbol: "HDFC", Exchange: "NSE", Price: -1, TS: base.Add(time.Hour)}
	close(quotes)

	sum, stats, err := bt.Run(context.Background(), quotes)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Quotes != 61 || stats.Rejected != 1 {
		t.Errorf("quotes=%d rejected=%d", stats.Quotes, stats.Rejected)
	}
	// the long SMA becomes ready at the 50th quote; from there every quote is bullish
	if stats.Signals["BUY"] != 11 || stats.Signals["HOLD"] != 49 {
		t.Errorf("signals = %v", stats.Signals)
	}
	if stats.Fills != 1 || sum.OpenPositions != 1 {
		t.Errorf("fills=%d open=%d", stats.Fills, sum.OpenPositions)
	}
	pos, ok := deps.Ledger.Position("HDFC")
	if !ok || pos.Quantity != 66 || !pos.EntryPrice.Equal(decimal.NewFromInt(150)) {
		t.Errorf("position = %+v", pos)
	}
	if sums := sink.ofType(model.EventSummary); len(sums) != 1 {
		t.Errorf("expected final summary event, got %d", len(sums))
	}
}

// ─── Report ───

func TestWriteReport(t *testing.T) {
	ledger, _ := portfolio.NewLedger(decimal.NewFromInt(100000), decimal.NewFromInt(10000))
	ledger.Buy("AAPL", decimal.NewFromInt(100))
	ledger.Buy("MSFT", decimal.NewFromInt(250))
	ledger.Sell("MSFT", decimal.NewFromInt(200))

	var buf bytes.Buffer
	if err := WriteReport(&buf, ledger.Snapshot(), ledger.Summary()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"TRADING SUMMARY",
		"Open Positions: 1",
		"AAPL: 100 shares @ INR 100.00",
		"Cash Balance:     INR 88000.00",
		"Positions Value:  INR 10000.00",
		"Total Portfolio:  INR 98000.00",
		"Total Return:     INR -2000.00 (-2.00%)",
		"wins 0, losses 1",
		"Status: Loss",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
