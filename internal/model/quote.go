// Package model holds the value types shared across the trading pipeline.
package model

import (
	"encoding/json"
	"time"
)

// DefaultExchange is assumed for bare symbols.
const DefaultExchange = "NSE"

// Quote is a single price observation for a symbol.
type Quote struct {
	Symbol   string    `json:"symbol"`
	Exchange string    `json:"exchange"`
	Price    float64   `json:"price"`
	TS       time.Time `json:"ts"`
}

// Key returns a unique key for the quote's instrument: "exchange:symbol".
func (q *Quote) Key() string {
	return q.Exchange + ":" + q.Symbol
}

// JSON returns the JSON-encoded quote (ignoring errors for hot-path usage).
func (q *Quote) JSON() []byte {
	b, _ := json.Marshal(q)
	return b
}
