package model

import "context"

// ── Storage Port Interfaces ──
// These interfaces decouple the bot from concrete storage implementations
// (SQLite). Each implementation satisfies one or more of these interfaces.

// QuoteWriter archives observed quotes.
type QuoteWriter interface {
	// WriteQuote persists a single quote.
	WriteQuote(ctx context.Context, q Quote) error

	// Close releases underlying resources.
	Close() error
}

// QuoteReader reads archived quotes for replay.
type QuoteReader interface {
	// ReadQuotes returns quotes after afterTS (unix seconds) in time order.
	// An empty symbol selects every symbol.
	ReadQuotes(ctx context.Context, symbol string, afterTS int64) ([]Quote, error)

	// Symbols lists the archived symbols.
	Symbols(ctx context.Context) ([]string, error)

	// Close releases underlying resources.
	Close() error
}
