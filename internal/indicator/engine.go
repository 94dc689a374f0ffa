package indicator

import "fmt"

// Config selects the indicator periods computed by the Engine.
type Config struct {
	SMAShort  int `yaml:"sma_short" json:"sma_short"`
	SMALong   int `yaml:"sma_long" json:"sma_long"`
	RSIPeriod int `yaml:"rsi_period" json:"rsi_period"`
}

// DefaultConfig returns SMA(20), SMA(50), RSI(14).
func DefaultConfig() Config {
	return Config{SMAShort: 20, SMALong: 50, RSIPeriod: DefaultRSIPeriod}
}

// MinHistory is the series length at which every indicator is ready.
func (c Config) MinHistory() int {
	n := c.SMAShort
	if c.SMALong > n {
		n = c.SMALong
	}
	if c.RSIPeriod+1 > n {
		n = c.RSIPeriod + 1
	}
	return n
}

// Engine computes indicator sets from whole series (Compute) or from a
// per-symbol bounded history fed one price at a time (Update).
// Not safe for concurrent use.
type Engine struct {
	cfg        Config
	historyLen int
	histories  map[string]*History
}

// NewEngine creates an Engine. historyLen bounds the per-symbol history and
// is raised to cfg.MinHistory() when smaller.
func NewEngine(cfg Config, historyLen int) *Engine {
	if need := cfg.MinHistory(); historyLen < need {
		historyLen = need
	}
	return &Engine{
		cfg:        cfg,
		historyLen: historyLen,
		histories:  make(map[string]*History, 16),
	}
}

// Config returns the engine's indicator periods.
func (e *Engine) Config() Config { return e.cfg }

// Compute returns the indicator set for a chronological series. The current
// price is the last element. An empty series is an invalid input.
func (e *Engine) Compute(prices []float64) (Set, error) {
	if len(prices) == 0 {
		return Set{}, fmt.Errorf("%w: empty price series", ErrInvalidInput)
	}
	snapshot := make([]float64, len(prices))
	copy(snapshot, prices)

	short, err := SMA(snapshot, e.cfg.SMAShort)
	if err != nil {
		return Set{}, fmt.Errorf("sma short: %w", err)
	}
	long, err := SMA(snapshot, e.cfg.SMALong)
	if err != nil {
		return Set{}, fmt.Errorf("sma long: %w", err)
	}
	rsi, err := RSI(snapshot, e.cfg.RSIPeriod)
	if err != nil {
		return Set{}, fmt.Errorf("rsi: %w", err)
	}
	return Set{
		SMAShort: short,
		SMALong:  long,
		RSI:      rsi,
		Price:    snapshot[len(snapshot)-1],
	}, nil
}

// Update appends price to the symbol's history and recomputes its set.
// The price is validated before it enters the history.
func (e *Engine) Update(symbol string, price float64) (Set, error) {
	if err := validate([]float64{price}, 1); err != nil {
		return Set{}, err
	}
	h := e.history(symbol)
	h.Push(price)
	return e.Compute(h.Prices())
}

// Prices returns a copy of the symbol's stored history.
func (e *Engine) Prices(symbol string) []float64 {
	h, ok := e.histories[symbol]
	if !ok {
		return nil
	}
	return h.Prices()
}

// Reset drops the symbol's history.
func (e *Engine) Reset(symbol string) {
	delete(e.histories, symbol)
}

func (e *Engine) history(symbol string) *History {
	h, ok := e.histories[symbol]
	if !ok {
		h = NewHistory(e.historyLen)
		e.histories[symbol] = h
	}
	return h
}
