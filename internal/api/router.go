// Package api serves the bot's read-only HTTP API: health, ledger summary,
// open positions, trade history, the WebSocket event stream and metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"ganaka-trader/internal/execution"
	"ganaka-trader/internal/portfolio"
)

const (
	defaultTradeLimit = 100
	maxTradeLimit     = 1000
)

// TradeLister returns journaled trades, newest first.
type TradeLister interface {
	GetTrades(ctx context.Context, limit int) ([]execution.TradeRecord, error)
}

// Deps are the handlers' data sources. Ledger is required; nil handlers
// leave their route unregistered.
type Deps struct {
	Ledger  *portfolio.Ledger
	Journal TradeLister  // falls back to the in-memory trade list
	Health  http.Handler // GET /api/v1/health
	Stream  http.Handler // WS  /api/v1/stream
	Metrics http.Handler // GET /metrics
}

// NewRouter sets up HTTP routes for the API server.
func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	if d.Health != nil {
		mux.Handle("GET /api/v1/health", d.Health)
	} else {
		mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	}

	mux.HandleFunc("GET /api/v1/summary", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Ledger.Summary())
	})

	mux.HandleFunc("GET /api/v1/positions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Ledger.Positions())
	})

	mux.HandleFunc("GET /api/v1/trades", func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseLimit(r.URL.Query().Get("limit"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if d.Journal != nil {
			trades, err := d.Journal.GetTrades(r.Context(), limit)
			if err != nil {
				log.Printf("[api] journal read failed: %v", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "journal unavailable"})
				return
			}
			writeJSON(w, http.StatusOK, trades)
			return
		}
		writeJSON(w, http.StatusOK, newestFirst(d.Ledger.Trades(), limit))
	})

	if d.Stream != nil {
		mux.Handle("/api/v1/stream", d.Stream)
	}
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}
	return mux
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return defaultTradeLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", s)
	}
	if n > maxTradeLimit {
		n = maxTradeLimit
	}
	return n, nil
}

func newestFirst(trades []portfolio.Trade, limit int) []portfolio.Trade {
	out := make([]portfolio.Trade, 0, min(limit, len(trades)))
	for i := len(trades) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, trades[i])
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

// Server runs the API HTTP server.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates an API server for handler on addr.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[api] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[api] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
