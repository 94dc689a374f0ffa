package portfolio

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is one executed ledger mutation. PnL fields are set on sells only.
type Trade struct {
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Amount     decimal.Decimal `json:"amount"` // cost on buys, revenue on sells
	EntryPrice decimal.Decimal `json:"entry_price"`
	PnL        decimal.Decimal `json:"pnl"`
	PnLPct     decimal.Decimal `json:"pnl_pct"`
	At         time.Time       `json:"at"`
}

// PnLTracker accumulates realized P&L and the trade history.
type PnLTracker struct {
	mu       sync.RWMutex
	trades   []Trade
	realized decimal.Decimal
	wins     int
	losses   int
}

// NewPnLTracker creates an empty tracker.
func NewPnLTracker() *PnLTracker {
	return &PnLTracker{
		trades:   make([]Trade, 0, 64),
		realized: decimal.Zero,
	}
}

// Record appends a trade and folds sell P&L into the realized total.
func (p *PnLTracker) Record(trade Trade) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.trades = append(p.trades, trade)
	if trade.Side != SideSell {
		return
	}
	p.realized = p.realized.Add(trade.PnL)
	switch {
	case trade.PnL.IsPositive():
		p.wins++
	case trade.PnL.IsNegative():
		p.losses++
	}
}

// Realized returns total realized P&L.
func (p *PnLTracker) Realized() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.realized
}

// Trades returns a copy of the trade history.
func (p *PnLTracker) Trades() []Trade {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]Trade, len(p.trades))
	copy(cp, p.trades)
	return cp
}

// WinLoss returns the number of profitable and losing closed positions.
func (p *PnLTracker) WinLoss() (wins, losses int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.wins, p.losses
}
