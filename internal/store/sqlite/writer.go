// Package sqlite archives observed quotes in SQLite so trading sessions can
// be replayed by the backtester.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"ganaka-trader/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/quotes.db"
}

// Writer is a single-connection SQLite quote archive.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened quote archive at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS quotes (
			symbol   TEXT    NOT NULL,
			exchange TEXT    NOT NULL,
			ts_ns    INTEGER NOT NULL,
			price    REAL    NOT NULL,
			PRIMARY KEY (exchange, symbol, ts_ns)
		);
		CREATE INDEX IF NOT EXISTS idx_quotes_ts ON quotes(ts_ns);
	`)
	return err
}

// WriteQuote inserts a single quote. A duplicate (exchange, symbol, ts)
// replaces the earlier row.
func (w *Writer) WriteQuote(ctx context.Context, q model.Quote) error {
	_, err := w.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO quotes (symbol, exchange, ts_ns, price) VALUES (?, ?, ?, ?)`,
		q.Symbol, q.Exchange, q.TS.UnixNano(), q.Price,
	)
	if err != nil {
		return fmt.Errorf("sqlite insert quote %s: %w", q.Key(), err)
	}
	return nil
}

// WriteBatch inserts quotes in a single transaction.
func (w *Writer) WriteBatch(ctx context.Context, quotes []model.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO quotes (symbol, exchange, ts_ns, price) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, q := range quotes {
		if _, err := stmt.ExecContext(ctx, q.Symbol, q.Exchange, q.TS.UnixNano(), q.Price); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite batch insert %s: %w", q.Key(), err)
		}
	}
	return tx.Commit()
}

// Count returns the number of archived quotes.
func (w *Writer) Count(ctx context.Context) (int64, error) {
	var n int64
	err := w.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes`).Scan(&n)
	return n, err
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
