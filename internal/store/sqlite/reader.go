package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"ganaka-trader/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to the quote archive for replay.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadQuotes reads quotes after afterTS (unix seconds), oldest first.
// An empty symbol selects every symbol.
func (r *Reader) ReadQuotes(ctx context.Context, symbol string, afterTS int64) ([]model.Quote, error) {
	afterNS := afterTS * int64(time.Second)
	var (
		rows *sql.Rows
		err  error
	)
	if symbol == "" {
		rows, err = r.db.QueryContext(ctx, `
			SELECT symbol, exchange, ts_ns, price
			FROM quotes
			WHERE ts_ns > ?
			ORDER BY ts_ns ASC, symbol ASC
		`, afterNS)
	} else {
		rows, err = r.db.QueryContext(ctx, `
			SELECT symbol, exchange, ts_ns, price
			FROM quotes
			WHERE symbol = ? AND ts_ns > ?
			ORDER BY ts_ns ASC
		`, symbol, afterNS)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite query quotes: %w", err)
	}
	defer rows.Close()

	var quotes []model.Quote
	for rows.Next() {
		var q model.Quote
		var tsNS int64
		if err := rows.Scan(&q.Symbol, &q.Exchange, &tsNS, &q.Price); err != nil {
			return nil, fmt.Errorf("sqlite scan quotes: %w", err)
		}
		q.TS = time.Unix(0, tsNS).UTC()
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// Symbols lists archived symbols in alphabetical order.
func (r *Reader) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM quotes ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("sqlite scan symbol: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *Reader) Close() error {
	return r.db.Close()
}
