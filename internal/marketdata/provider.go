// Package marketdata supplies price series and execution quotes to the bot.
//
// Real market-data vendors plug in behind Provider. The package ships a mock
// provider for demos, a rate-limited wrapper, a recorder that archives
// quotes, and a replayer for backtests over archived quotes.
package marketdata

import (
	"context"
	"errors"
)

// ErrUnknownSymbol is returned by providers that do not carry a symbol.
var ErrUnknownSymbol = errors.New("marketdata: unknown symbol")

// Provider is the market-data boundary of the bot.
type Provider interface {
	// History returns up to n chronological prices for symbol, oldest first.
	History(ctx context.Context, symbol string, n int) ([]float64, error)

	// Quote returns the current execution price for symbol.
	Quote(ctx context.Context, symbol string) (float64, error)
}
