// Package portfolio is the position ledger: cash, open positions and
// realized profit/loss for one trading session.
//
// The Ledger owns every Position. Readers receive copies; Buy and Sell are
// the only mutators and are serialized by the ledger's mutex, so
// evaluations for different symbols never interleave their mutations.
package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned for non-positive prices and balances.
var ErrInvalidInput = errors.New("portfolio: invalid input")

// Position is an open holding of a symbol.
type Position struct {
	Symbol     string          `json:"symbol"`
	Quantity   int64           `json:"quantity"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Cost       decimal.Decimal `json:"cost"` // Quantity * EntryPrice
	OpenedAt   time.Time       `json:"opened_at"`
}

// Ledger tracks cash and at most one open position per symbol.
type Ledger struct {
	mu sync.RWMutex

	initial         decimal.Decimal
	maxPositionSize decimal.Decimal
	cash            decimal.Decimal
	positions       map[string]Position

	pnl    *PnLTracker
	equity *EquityTracker

	now func() time.Time
}

// NewLedger creates a ledger funded with initialBalance. Each BUY commits at
// most maxPositionSize of cash.
func NewLedger(initialBalance, maxPositionSize decimal.Decimal) (*Ledger, error) {
	if !initialBalance.IsPositive() {
		return nil, fmt.Errorf("%w: initial balance %s", ErrInvalidInput, initialBalance)
	}
	if !maxPositionSize.IsPositive() {
		return nil, fmt.Errorf("%w: max position size %s", ErrInvalidInput, maxPositionSize)
	}
	return &Ledger{
		initial:         initialBalance,
		maxPositionSize: maxPositionSize,
		cash:            initialBalance,
		positions:       make(map[string]Position),
		pnl:             NewPnLTracker(),
		equity:          NewEquityTracker(initialBalance),
		now:             time.Now,
	}, nil
}

// Buy opens a position in symbol at price. It is a no-op, returning
// (nil, nil), when the symbol already has a position, when cash is below the
// max position size, or when price exceeds the max position size.
func (l *Ledger) Buy(symbol string, price decimal.Decimal) (*Trade, error) {
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: buy %s at %s", ErrInvalidInput, symbol, price)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, open := l.positions[symbol]; open {
		return nil, nil
	}
	if l.cash.LessThan(l.maxPositionSize) {
		return nil, nil
	}
	qty := l.maxPositionSize.Div(price).Floor()
	if !qty.IsPositive() {
		return nil, nil
	}

	cost := qty.Mul(price)
	at := l.now()
	l.cash = l.cash.Sub(cost)
	l.positions[symbol] = Position{
		Symbol:     symbol,
		Quantity:   qty.IntPart(),
		EntryPrice: price,
		Cost:       cost,
		OpenedAt:   at,
	}

	trade := Trade{
		Symbol:   symbol,
		Side:     SideBuy,
		Quantity: qty.IntPart(),
		Price:    price,
		Amount:   cost,
		At:       at,
	}
	l.pnl.Record(trade)
	l.equity.Mark(l.bookValueLocked())
	return &trade, nil
}

// Sell closes the symbol's position at price and realizes its P&L. It is a
// no-op, returning (nil, nil), when no position is open.
func (l *Ledger) Sell(symbol string, price decimal.Decimal) (*Trade, error) {
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: sell %s at %s", ErrInvalidInput, symbol, price)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos, open := l.positions[symbol]
	if !open {
		return nil, nil
	}

	revenue := decimal.NewFromInt(pos.Quantity).Mul(price)
	pnl := revenue.Sub(pos.Cost)
	pct := pnl.Div(pos.Cost).Mul(decimal.NewFromInt(100))

	l.cash = l.cash.Add(revenue)
	delete(l.positions, symbol)

	trade := Trade{
		Symbol:     symbol,
		Side:       SideSell,
		Quantity:   pos.Quantity,
		Price:      price,
		Amount:     revenue,
		EntryPrice: pos.EntryPrice,
		PnL:        pnl,
		PnLPct:     pct,
		At:         l.now(),
	}
	l.pnl.Record(trade)
	l.equity.Mark(l.bookValueLocked())
	return &trade, nil
}

// Position returns a copy of the symbol's open position.
func (l *Ledger) Position(symbol string) (Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[symbol]
	return p, ok
}

// Positions returns copies of all open positions sorted by symbol.
func (l *Ledger) Positions() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.positionsLocked()
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cash
}

// InitialBalance returns the starting cash.
func (l *Ledger) InitialBalance() decimal.Decimal { return l.initial }

// MaxPositionSize returns the per-position cash commitment.
func (l *Ledger) MaxPositionSize() decimal.Decimal { return l.maxPositionSize }

// RealizedPnL returns the sum of P&L over closed positions.
func (l *Ledger) RealizedPnL() decimal.Decimal {
	return l.pnl.Realized()
}

// Trades returns every executed trade in order.
func (l *Ledger) Trades() []Trade {
	return l.pnl.Trades()
}

func (l *Ledger) positionsLocked() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (l *Ledger) positionsValueLocked() decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.positions {
		total = total.Add(p.Cost)
	}
	return total
}

// bookValueLocked is cash plus the cost basis of open positions.
func (l *Ledger) bookValueLocked() decimal.Decimal {
	return l.cash.Add(l.positionsValueLocked())
}
