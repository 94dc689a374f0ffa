package indicator

import "gonum.org/v1/gonum/stat"

// DefaultRSIPeriod is the conventional RSI lookback.
const DefaultRSIPeriod = 14

// RSI computes the Relative Strength Index over the last period price
// changes using simple (not Wilder-smoothed) averages of gains and losses.
//
// Not ready when len(prices) < period+1. A window without losses yields 100.
func RSI(prices []float64, period int) (Value, error) {
	if err := validate(prices, period); err != nil {
		return unavailable(), err
	}
	if len(prices) < period+1 {
		return unavailable(), nil
	}

	window := prices[len(prices)-period-1:]
	gains := make([]float64, period)
	losses := make([]float64, period)
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}

	avgGain := stat.Mean(gains, nil)
	avgLoss := stat.Mean(losses, nil)
	if avgLoss == 0 {
		return ready(100), nil
	}
	rs := avgGain / avgLoss
	return ready(100 - 100/(1+rs)), nil
}
