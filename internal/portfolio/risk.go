package portfolio

import (
	"sync"

	"github.com/shopspring/decimal"
)

// EquityTracker follows book equity (cash plus open cost basis) after every
// trade and records its peak and the deepest drawdown from that peak.
type EquityTracker struct {
	mu          sync.RWMutex
	equity      decimal.Decimal
	peak        decimal.Decimal
	maxDrawdown decimal.Decimal // percent of peak
}

// NewEquityTracker starts tracking from initial equity.
func NewEquityTracker(initial decimal.Decimal) *EquityTracker {
	return &EquityTracker{
		equity:      initial,
		peak:        initial,
		maxDrawdown: decimal.Zero,
	}
}

// Mark records a new equity reading.
func (e *EquityTracker) Mark(equity decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.equity = equity
	if equity.GreaterThan(e.peak) {
		e.peak = equity
		return
	}
	if !e.peak.IsPositive() {
		return
	}
	dd := e.peak.Sub(equity).Div(e.peak).Mul(decimal.NewFromInt(100))
	if dd.GreaterThan(e.maxDrawdown) {
		e.maxDrawdown = dd
	}
}

// Peak returns the highest equity seen.
func (e *EquityTracker) Peak() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.peak
}

// MaxDrawdownPct returns the deepest peak-to-trough drop in percent.
func (e *EquityTracker) MaxDrawdownPct() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.maxDrawdown
}
