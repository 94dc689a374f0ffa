// Package execution turns strategy signals into ledger mutations.
//
// The PaperExecutor simulates fills against the in-memory ledger with
// optional slippage and journals every fill to SQLite for audit.
package execution

import (
	"context"
	"time"

	"ganaka-trader/internal/strategy"

	"github.com/shopspring/decimal"
)

// Fill is the outcome of an executed signal.
type Fill struct {
	OrderID   string            `json:"order_id"`
	Signal    strategy.Signal   `json:"signal"`
	Side      strategy.Decision `json:"side"`
	Symbol    string            `json:"symbol"`
	Quantity  int64             `json:"quantity"`
	Quote     decimal.Decimal   `json:"quote"`      // price before slippage
	FillPrice decimal.Decimal   `json:"fill_price"` // price applied to the ledger
	Slippage  decimal.Decimal   `json:"slippage"`
	Amount    decimal.Decimal   `json:"amount"`
	PnL       decimal.Decimal   `json:"pnl"`
	PnLPct    decimal.Decimal   `json:"pnl_pct"`
	FilledAt  time.Time         `json:"filled_at"`
}

// Executor applies a signal at an execution price. A nil Fill with a nil
// error means the signal was a valid no-op (HOLD, BUY without capital or
// with an open position, SELL without a position).
type Executor interface {
	Execute(ctx context.Context, sig strategy.Signal, price float64) (*Fill, error)
}

// FillRecorder persists fills.
type FillRecorder interface {
	RecordFill(ctx context.Context, fill Fill) error
}
