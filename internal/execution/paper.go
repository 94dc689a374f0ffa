package execution

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"

	"ganaka-trader/internal/portfolio"
	"ganaka-trader/internal/strategy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaperExecutor simulates order execution against a Ledger without broker
// calls. Useful for backtesting and paper trading.
type PaperExecutor struct {
	ledger *portfolio.Ledger

	mu    sync.RWMutex
	fills []Fill

	// Simulation parameters
	slippageBps int64 // basis points of slippage (e.g., 5 = 0.05%)

	journal FillRecorder
	newID   func() string
}

// NewPaperExecutor creates a paper trading executor over ledger.
// slippageBps controls simulated slippage in basis points.
func NewPaperExecutor(ledger *portfolio.Ledger, slippageBps int64) *PaperExecutor {
	if slippageBps < 0 {
		slippageBps = 0
	}
	return &PaperExecutor{
		ledger:      ledger,
		fills:       make([]Fill, 0, 256),
		slippageBps: slippageBps,
		newID:       func() string { return "PAPER-" + uuid.NewString() },
	}
}

// WithJournal records every fill to j. Journal failures are logged, not
// returned: the ledger mutation has already happened.
func (p *PaperExecutor) WithJournal(j FillRecorder) *PaperExecutor {
	p.journal = j
	return p
}

// GetFills returns a snapshot of all fills.
func (p *PaperExecutor) GetFills() []Fill {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]Fill, len(p.fills))
	copy(cp, p.fills)
	return cp
}

// Execute applies sig at price. Buys fill higher and sells lower by the
// configured slippage.
func (p *PaperExecutor) Execute(ctx context.Context, sig strategy.Signal, price float64) (*Fill, error) {
	if !sig.Actionable() {
		return nil, nil
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("%w: execution price %v for %s", portfolio.ErrInvalidInput, price, sig.Symbol)
	}

	quote := decimal.NewFromFloat(price)
	slippage := quote.Mul(decimal.NewFromInt(p.slippageBps)).Div(decimal.NewFromInt(10000))
	fillPrice := quote

	var (
		trade *portfolio.Trade
		err   error
	)
	switch sig.Decision {
	case strategy.DecisionBuy:
		fillPrice = quote.Add(slippage) // buy higher
		trade, err = p.ledger.Buy(sig.Symbol, fillPrice)
	case strategy.DecisionSell:
		fillPrice = quote.Sub(slippage) // sell lower
		trade, err = p.ledger.Sell(sig.Symbol, fillPrice)
	}
	if err != nil {
		return nil, fmt.Errorf("paper %s %s: %w", sig.Decision, sig.Symbol, err)
	}
	if trade == nil {
		log.Printf("[paper] %s %s skipped: ledger no-op", sig.Decision, sig.Symbol)
		return nil, nil
	}

	fill := Fill{
		OrderID:   p.newID(),
		Signal:    sig,
		Side:      sig.Decision,
		Symbol:    sig.Symbol,
		Quantity:  trade.Quantity,
		Quote:     quote,
		FillPrice: fillPrice,
		Slippage:  slippage,
		Amount:    trade.Amount,
		PnL:       trade.PnL,
		PnLPct:    trade.PnLPct,
		FilledAt:  trade.At,
	}

	p.mu.Lock()
	p.fills = append(p.fills, fill)
	p.mu.Unlock()

	log.Printf("[paper] %s %s qty=%d price=%s (slip=%s) order=%s reason=%s",
		fill.Side, fill.Symbol, fill.Quantity, fill.FillPrice.StringFixed(2),
		fill.Slippage.StringFixed(2), fill.OrderID, sig.Reason)

	if p.journal != nil {
		if err := p.journal.RecordFill(ctx, fill); err != nil {
			log.Printf("[paper] journal write failed for %s: %v", fill.OrderID, err)
		}
	}
	return &fill, nil
}
