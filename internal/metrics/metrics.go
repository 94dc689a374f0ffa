package metrics

import (
	"context"
	"log"
	"net/http"
	"time"

	"ganaka-trader/internal/execution"
	"ganaka-trader/internal/model"
	"ganaka-trader/internal/portfolio"
	"ganaka-trader/internal/strategy"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading bot.
// Every method is safe on a nil receiver so callers can run without metrics.
type Metrics struct {
	DecisionsTotal *prometheus.CounterVec // labels: decision
	FillsTotal     *prometheus.CounterVec // labels: side
	NoopsTotal     *prometheus.CounterVec // labels: decision
	FallbackTotal  prometheus.Counter
	ProviderErrors *prometheus.CounterVec // labels: symbol
	CycleDur       prometheus.Histogram
	IterationsDone prometheus.Counter

	Cash          prometheus.Gauge
	Equity        prometheus.Gauge
	RealizedPnL   prometheus.Gauge
	OpenPositions prometheus.Gauge
	DrawdownPct   prometheus.Gauge

	// Side channels
	FanoutDropsTotal         *prometheus.CounterVec // labels: subscriber
	RedisCircuitBreakerState prometheus.Gauge       // 0=closed, 1=open, 2=half-open
	MarketState              prometheus.Gauge       // 0=closed, 1=open
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebot_decisions_total",
			Help: "Strategy decisions by action",
		}, []string{"decision"}),
		FillsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebot_fills_total",
			Help: "Executed paper fills by side",
		}, []string{"side"}),
		NoopsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebot_noop_executions_total",
			Help: "Actionable decisions the ledger declined (no cash or no position)",
		}, []string{"decision"}),
		FallbackTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebot_fallback_evaluations_total",
			Help: "Evaluations that ran on substituted indicator values",
		}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebot_provider_errors_total",
			Help: "Market data errors that skipped a symbol",
		}, []string{"symbol"}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradebot_cycle_duration_seconds",
			Help:    "Latency of one evaluate-and-execute cycle for a symbol",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		IterationsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebot_iterations_total",
			Help: "Completed iterations over the symbol list",
		}),
		Cash: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_cash",
			Help: "Uninvested cash",
		}),
		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_equity",
			Help: "Cash plus open positions at cost",
		}),
		RealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_realized_pnl",
			Help: "Cumulative realized profit and loss",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_open_positions",
			Help: "Number of open positions",
		}),
		DrawdownPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_max_drawdown_pct",
			Help: "Maximum drawdown from peak equity in percent",
		}),
		FanoutDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebot_fanout_drops_total",
			Help: "Events dropped by the event bus per subscriber",
		}, []string{"subscriber"}),
		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_market_state",
			Help: "Market session state (0=closed, 1=open)",
		}),
	}

	reg.MustRegister(
		m.DecisionsTotal,
		m.FillsTotal,
		m.NoopsTotal,
		m.FallbackTotal,
		m.ProviderErrors,
		m.CycleDur,
		m.IterationsDone,
		m.Cash,
		m.Equity,
		m.RealizedPnL,
		m.OpenPositions,
		m.DrawdownPct,
		m.FanoutDropsTotal,
		m.RedisCircuitBreakerState,
		m.MarketState,
	)
	return m
}

// Run consumes bot events and updates metrics until ctx is cancelled or ch
// is closed.
func (m *Metrics) Run(ctx context.Context, ch <-chan model.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			m.Observe(ev)
		}
	}
}

// Observe updates metrics from a single event.
func (m *Metrics) Observe(ev model.Event) {
	if m == nil {
		return
	}
	switch data := ev.Data.(type) {
	case strategy.Signal:
		m.DecisionsTotal.WithLabelValues(string(data.Decision)).Inc()
		if data.Substituted {
			m.FallbackTotal.Inc()
		}
	case execution.Fill:
		m.FillsTotal.WithLabelValues(string(data.Side)).Inc()
	case portfolio.Summary:
		m.Cash.Set(data.Cash.InexactFloat64())
		m.Equity.Set(data.TotalValue.InexactFloat64())
		m.RealizedPnL.Set(data.RealizedPnL.InexactFloat64())
		m.OpenPositions.Set(float64(data.OpenPositions))
		m.DrawdownPct.Set(data.MaxDrawdownPct.InexactFloat64())
	}
}

// ObserveCycle records the duration of one symbol cycle.
func (m *Metrics) ObserveCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.CycleDur.Observe(d.Seconds())
}

// IncNoop counts a decision the ledger declined.
func (m *Metrics) IncNoop(d strategy.Decision) {
	if m == nil {
		return
	}
	m.NoopsTotal.WithLabelValues(string(d)).Inc()
}

// IncProviderError counts a skipped symbol.
func (m *Metrics) IncProviderError(symbol string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(symbol).Inc()
}

// IncIteration counts a completed iteration.
func (m *Metrics) IncIteration() {
	if m == nil {
		return
	}
	m.IterationsDone.Inc()
}

// SetMarketOpen records whether the market is open.
func (m *Metrics) SetMarketOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.MarketState.Set(1)
	} else {
		m.MarketState.Set(0)
	}
}

// IncDrop counts an event dropped for subscriber.
func (m *Metrics) IncDrop(subscriber string) {
	if m == nil {
		return
	}
	m.FanoutDropsTotal.WithLabelValues(subscriber).Inc()
}

// SetBreakerState records the Redis circuit breaker state.
func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.RedisCircuitBreakerState.Set(float64(state))
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, gatherer prometheus.Gatherer, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
