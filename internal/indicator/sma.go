package indicator

import "gonum.org/v1/gonum/stat"

// SMA returns the arithmetic mean of the last period prices.
// Not ready when len(prices) < period.
func SMA(prices []float64, period int) (Value, error) {
	if err := validate(prices, period); err != nil {
		return unavailable(), err
	}
	if len(prices) < period {
		return unavailable(), nil
	}
	return ready(stat.Mean(prices[len(prices)-period:], nil)), nil
}
