package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// HealthStatus tracks liveness of the bot and its optional dependencies.
// Redis and SQLite only count against health when they are configured.
type HealthStatus struct {
	mu sync.RWMutex

	lastCycle  time.Time
	iteration  int
	marketOpen bool

	redisEnabled   bool
	redisConnected bool
	redisLatencyMs float64

	sqliteEnabled   bool
	sqliteOK        bool
	sqliteLatencyMs float64

	lastCheckAt time.Time
	startedAt   time.Time
	now         func() time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// RecordIteration notes a completed iteration.
func (h *HealthStatus) RecordIteration(n int) {
	h.mu.Lock()
	h.iteration = n
	h.lastCycle = h.now()
	h.mu.Unlock()
}

func (h *HealthStatus) SetMarketOpen(v bool) {
	h.mu.Lock()
	h.marketOpen = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.redisEnabled = true
	h.redisConnected = err == nil
	h.redisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.lastCheckAt = h.now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.sqliteEnabled = true
	h.sqliteOK = err == nil
	h.sqliteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.lastCheckAt = h.now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Nil dependencies
// are skipped.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, dbs []*sql.DB, interval time.Duration) {
	check := func() {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if rdb != nil {
			h.CheckRedis(probeCtx, rdb)
		}
		for _, db := range dbs {
			if db != nil {
				h.CheckSQLite(probeCtx, db)
			}
		}
	}
	check()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()
}

// Report is the JSON body served by the health endpoint.
type Report struct {
	Status          string  `json:"status"`
	Uptime          string  `json:"uptime"`
	Iteration       int     `json:"iteration"`
	LastCycle       string  `json:"last_cycle,omitempty"`
	MarketOpen      bool    `json:"market_open"`
	RedisConnected  *bool   `json:"redis_connected,omitempty"`
	RedisLatencyMs  float64 `json:"redis_latency_ms,omitempty"`
	SQLiteOK        *bool   `json:"sqlite_ok,omitempty"`
	SQLiteLatencyMs float64 `json:"sqlite_latency_ms,omitempty"`
	LastCheckAt     string  `json:"last_check_at,omitempty"`
}

// Report builds the current health report.
func (h *HealthStatus) Report() Report {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r := Report{
		Status:     "healthy",
		Uptime:     h.now().Sub(h.startedAt).Round(time.Second).String(),
		Iteration:  h.iteration,
		MarketOpen: h.marketOpen,
	}
	if !h.lastCycle.IsZero() {
		r.LastCycle = h.lastCycle.Format(time.RFC3339)
	}
	if !h.lastCheckAt.IsZero() {
		r.LastCheckAt = h.lastCheckAt.Format(time.RFC3339)
	}

	degraded := 0
	if h.redisEnabled {
		ok := h.redisConnected
		r.RedisConnected = &ok
		r.RedisLatencyMs = h.redisLatencyMs
		if !ok {
			degraded++
		}
	}
	if h.sqliteEnabled {
		ok := h.sqliteOK
		r.SQLiteOK = &ok
		r.SQLiteLatencyMs = h.sqliteLatencyMs
		if !ok {
			degraded++
		}
	}
	switch {
	case degraded == 2:
		r.Status = "unhealthy"
	case degraded == 1:
		r.Status = "degraded"
	}
	return r
}

// ServeHTTP handles the health endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := h.Report()
	w.Header().Set("Content-Type", "application/json")
	if report.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(report)
}
