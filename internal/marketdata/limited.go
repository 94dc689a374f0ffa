package marketdata

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limited wraps a Provider with a token-bucket limiter shared by History
// and Quote, so the bot never exceeds a vendor's request budget.
type Limited struct {
	next    Provider
	limiter *rate.Limiter
}

// NewLimited allows rps requests per second with the given burst.
// rps <= 0 disables limiting.
func NewLimited(next Provider, rps float64, burst int) *Limited {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (l *Limited) History(ctx context.Context, symbol string, n int) ([]float64, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit history %s: %w", symbol, err)
	}
	return l.next.History(ctx, symbol, n)
}

func (l *Limited) Quote(ctx context.Context, symbol string) (float64, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit quote %s: %w", symbol, err)
	}
	return l.next.Quote(ctx, symbol)
}
