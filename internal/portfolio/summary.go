package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is a point-in-time copy of the ledger.
type Snapshot struct {
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Cash           decimal.Decimal `json:"cash"`
	Positions      []Position      `json:"positions"`
	RealizedPnL    decimal.Decimal `json:"realized_pnl"`
	TakenAt        time.Time       `json:"taken_at"`
}

// Summary is the read-only valuation of the ledger at cost basis.
type Summary struct {
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Cash           decimal.Decimal `json:"cash"`
	PositionsValue decimal.Decimal `json:"positions_value"`
	TotalValue     decimal.Decimal `json:"total_value"`
	TotalReturn    decimal.Decimal `json:"total_return"`
	ReturnPct      decimal.Decimal `json:"return_pct"`
	RealizedPnL    decimal.Decimal `json:"realized_pnl"`
	OpenPositions  int             `json:"open_positions"`
	TotalTrades    int             `json:"total_trades"`
	Wins           int             `json:"wins"`
	Losses         int             `json:"losses"`
	PeakEquity     decimal.Decimal `json:"peak_equity"`
	MaxDrawdownPct decimal.Decimal `json:"max_drawdown_pct"`
}

// Profitable reports whether the session is at or above its initial balance.
func (s Summary) Profitable() bool {
	return !s.TotalReturn.IsNegative()
}

// Snapshot copies the ledger state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		InitialBalance: l.initial,
		Cash:           l.cash,
		Positions:      l.positionsLocked(),
		RealizedPnL:    l.pnl.Realized(),
		TakenAt:        l.now(),
	}
}

// Summary values the ledger: positions at cost, total = cash + positions,
// return relative to the initial balance.
func (l *Ledger) Summary() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	positionsValue := l.positionsValueLocked()
	total := l.cash.Add(positionsValue)
	ret := total.Sub(l.initial)
	wins, losses := l.pnl.WinLoss()

	return Summary{
		InitialBalance: l.initial,
		Cash:           l.cash,
		PositionsValue: positionsValue,
		TotalValue:     total,
		TotalReturn:    ret,
		ReturnPct:      ret.Div(l.initial).Mul(decimal.NewFromInt(100)),
		RealizedPnL:    l.pnl.Realized(),
		OpenPositions:  len(l.positions),
		TotalTrades:    len(l.pnl.Trades()),
		Wins:           wins,
		Losses:         losses,
		PeakEquity:     l.equity.Peak(),
		MaxDrawdownPct: l.equity.MaxDrawdownPct(),
	}
}
