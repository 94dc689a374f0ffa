package marketdata

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
)

// Mock spreads around the base price, matching the demo bot.
const (
	DefaultMockBase          = 100.0
	DefaultMockHistorySpread = 10.0
	DefaultMockQuoteSpread   = 5.0
)

// MockProvider generates uniformly distributed prices around a per-symbol
// base. History and Quote are drawn independently, so the execution quote
// differs from the last history price. Seeded for reproducible runs.
type MockProvider struct {
	mu            sync.Mutex
	rng           *rand.Rand
	bases         map[string]float64
	defaultBase   float64
	historySpread float64
	quoteSpread   float64
}

// NewMockProvider creates a mock provider with the given seed.
func NewMockProvider(seed int64) *MockProvider {
	return &MockProvider{
		rng:           rand.New(rand.NewSource(seed)),
		bases:         make(map[string]float64),
		defaultBase:   DefaultMockBase,
		historySpread: DefaultMockHistorySpread,
		quoteSpread:   DefaultMockQuoteSpread,
	}
}

// SetBase overrides the centre price for symbol.
func (m *MockProvider) SetBase(symbol string, base float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bases[symbol] = base
}

// SetSpreads overrides the history and quote half-widths.
func (m *MockProvider) SetSpreads(history, quote float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historySpread = history
	m.quoteSpread = quote
}

// History returns n prices in [base-historySpread, base+historySpread).
func (m *MockProvider) History(ctx context.Context, symbol string, n int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("mock history %s: n=%d", symbol, n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	base := m.baseLocked(symbol)
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = m.uniformLocked(base, m.historySpread)
	}
	return prices, nil
}

// Quote returns a price in [base-quoteSpread, base+quoteSpread).
func (m *MockProvider) Quote(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uniformLocked(m.baseLocked(symbol), m.quoteSpread), nil
}

func (m *MockProvider) baseLocked(symbol string) float64 {
	if b, ok := m.bases[symbol]; ok {
		return b
	}
	return m.defaultBase
}

func (m *MockProvider) uniformLocked(base, spread float64) float64 {
	return base + (m.rng.Float64()*2-1)*spread
}
