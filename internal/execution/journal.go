package execution

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Journal persists trade fills to SQLite for analysis and audit.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) a SQLite journal database.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("journal open: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS fills (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id    TEXT NOT NULL UNIQUE,
		strategy    TEXT NOT NULL,
		rule        TEXT,
		side        TEXT NOT NULL,
		symbol      TEXT NOT NULL,
		qty         INTEGER NOT NULL,
		quote       TEXT NOT NULL,
		fill_price  TEXT NOT NULL,
		slippage    TEXT NOT NULL,
		amount      TEXT NOT NULL,
		pnl         TEXT NOT NULL,
		pnl_pct     TEXT NOT NULL,
		reason      TEXT,
		filled_at   TEXT NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_fills_symbol ON fills(symbol);
	CREATE INDEX IF NOT EXISTS idx_fills_filled_at ON fills(filled_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	log.Printf("[journal] opened trade journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// RecordFill persists a fill to the journal. Decimal amounts are stored as
// text to keep them exact.
func (j *Journal) RecordFill(ctx context.Context, fill Fill) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO fills (order_id, strategy, rule, side, symbol, qty, quote, fill_price, slippage, amount, pnl, pnl_pct, reason, filled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fill.OrderID,
		fill.Signal.StrategyName,
		fill.Signal.Rule,
		string(fill.Side),
		fill.Symbol,
		fill.Quantity,
		fill.Quote.String(),
		fill.FillPrice.String(),
		fill.Slippage.String(),
		fill.Amount.String(),
		fill.PnL.String(),
		fill.PnLPct.String(),
		fill.Signal.Reason,
		fill.FilledAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("journal insert %s: %w", fill.OrderID, err)
	}
	return nil
}

// TradeRecord represents a row from the fills table.
type TradeRecord struct {
	ID        int64  `json:"id"`
	OrderID   string `json:"order_id"`
	Strategy  string `json:"strategy"`
	Rule      string `json:"rule"`
	Side      string `json:"side"`
	Symbol    string `json:"symbol"`
	Qty       int64  `json:"qty"`
	FillPrice string `json:"fill_price"`
	Amount    string `json:"amount"`
	PnL       string `json:"pnl"`
	PnLPct    string `json:"pnl_pct"`
	Reason    string `json:"reason"`
	FilledAt  string `json:"filled_at"`
}

// GetTrades returns the last N fills, newest first.
func (j *Journal) GetTrades(ctx context.Context, limit int) ([]TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, order_id, strategy, COALESCE(rule, ''), side, symbol, qty, fill_price, amount, pnl, pnl_pct, COALESCE(reason, ''), filled_at
		 FROM fills ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	trades := make([]TradeRecord, 0, limit)
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Strategy, &t.Rule, &t.Side, &t.Symbol,
			&t.Qty, &t.FillPrice, &t.Amount, &t.PnL, &t.PnLPct, &t.Reason, &t.FilledAt); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// DB returns the underlying sql.DB for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
