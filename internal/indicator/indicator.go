// Package indicator computes technical indicators over chronological price
// series.
//
// SMA and RSI are pure functions over a trailing window. An indicator that
// does not have enough history is reported as a Value with Ready=false rather
// than an error; errors are reserved for caller contract violations.
package indicator

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for non-positive periods and for prices that
// are negative, NaN or infinite.
var ErrInvalidInput = errors.New("indicator: invalid input")

// Value is a single indicator reading. V is meaningful only when Ready.
type Value struct {
	V     float64 `json:"value"`
	Ready bool    `json:"ready"`
}

// Or returns V when ready, fallback otherwise.
func (v Value) Or(fallback float64) float64 {
	if !v.Ready {
		return fallback
	}
	return v.V
}

func unavailable() Value { return Value{} }

func ready(v float64) Value { return Value{V: v, Ready: true} }

// Set is the indicator snapshot for one evaluation.
type Set struct {
	SMAShort Value   `json:"sma_short"`
	SMALong  Value   `json:"sma_long"`
	RSI      Value   `json:"rsi"`
	Price    float64 `json:"price"`
}

// Complete reports whether every indicator in the set is ready.
func (s Set) Complete() bool {
	return s.SMAShort.Ready && s.SMALong.Ready && s.RSI.Ready
}

func validate(prices []float64, period int) error {
	if period <= 0 {
		return fmt.Errorf("%w: period %d", ErrInvalidInput, period)
	}
	for i, p := range prices {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: price[%d]=%v", ErrInvalidInput, i, p)
		}
	}
	return nil
}
