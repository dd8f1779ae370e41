package indicator

import (
	"fmt"

	"github.com/dnldd/confluence/shared"
)

// RSIValue computes the latest relative strength index for the provided
// candles using wilder smoothing.
func RSIValue(candles []*shared.Candlestick, period int) (Point, error) {
	if period <= 0 {
		return Point{}, fmt.Errorf("rsi period must be positive, got %d: %w",
			period, shared.ErrInvalidParameter)
	}
	if len(candles) < period+1 {
		return Point{}, fmt.Errorf("rsi(%d) needs %d candles, got %d: %w",
			period, period+1, len(candles), shared.ErrInsufficientData)
	}

	var avgGain, avgLoss float64
	for idx := 1; idx <= period; idx++ {
		change := candles[idx].Close - candles[idx-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for idx := period + 1; idx < len(candles); idx++ {
		change := candles[idx].Close - candles[idx-1].Close
		var gain, loss float64
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	point := Point{Date: candles[len(candles)-1].Date}
	switch {
	case avgLoss == 0 && avgGain == 0:
		// A flat series resolves to a neutral reading.
		point.Value = 50
	case avgLoss == 0:
		point.Value = 100
	default:
		rs := avgGain / avgLoss
		point.Value = 100 - 100/(1+rs)
	}

	return point, nil
}
