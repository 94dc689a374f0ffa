package marketdata

import (
	"context"
	"log"
	"time"

	"ganaka-trader/internal/model"
)

// Recorder archives every quote served by the wrapped provider so sessions
// can be replayed later by the backtester.
type Recorder struct {
	next     Provider
	w        model.QuoteWriter
	exchange string
	now      func() time.Time
}

// NewRecorder wraps next and writes quotes to w.
func NewRecorder(next Provider, w model.QuoteWriter, exchange string) *Recorder {
	if exchange == "" {
		exchange = model.DefaultExchange
	}
	return &Recorder{next: next, w: w, exchange: exchange, now: time.Now}
}

func (r *Recorder) History(ctx context.Context, symbol string, n int) ([]float64, error) {
	return r.next.History(ctx, symbol, n)
}

// Quote forwards to the wrapped provider and archives the result. Archive
// failures are logged and never fail the quote.
func (r *Recorder) Quote(ctx context.Context, symbol string) (float64, error) {
	price, err := r.next.Quote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	q := model.Quote{Symbol: symbol, Exchange: r.exchange, Price: price, TS: r.now().UTC()}
	if werr := r.w.WriteQuote(ctx, q); werr != nil {
		log.Printf("[recorder] archive %s failed: %v", q.Key(), werr)
	}
	return price, nil
}
