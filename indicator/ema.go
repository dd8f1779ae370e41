package indicator

import (
	"fmt"
	"time"

	"github.com/dnldd/confluence/shared"
)

// Point is an indicator value keyed by candle close time.
type Point struct {
	Value float64
	Date  time.Time
}

// SmoothingFactor returns the ema smoothing factor for the provided period.
func SmoothingFactor(period int) float64 {
	return 2 / (float64(period) + 1)
}

// EMAUpdate incrementally rolls an ema value forward with a new close.
func EMAUpdate(prev float64, close float64, period int) float64 {
	k := SmoothingFactor(period)
	return (close-prev)*k + prev
}

// EMASeries computes the exponential moving average series for the provided
// candles. The first point is seeded with a simple average over the first
// period closes, so at least period+1 candles are required.
func EMASeries(candles []*shared.Candlestick, period int) ([]Point, error) {
	if period <= 0 {
		return nil, fmt.Errorf("ema period must be positive, got %d: %w",
			period, shared.ErrInvalidParameter)
	}
	if len(candles) < period+1 {
		return nil, fmt.Errorf("ema(%d) needs %d candles, got %d: %w",
			period, period+1, len(candles), shared.ErrInsufficientData)
	}

	// Seed with the simple average of the first period closes.
	var sum float64
	for idx := range period {
		sum += candles[idx].Close
	}

	series := make([]Point, 0, len(candles)-period+1)
	series = append(series, Point{
		Value: sum / float64(period),
		Date:  candles[period-1].Date,
	})

	for idx := period; idx < len(candles); idx++ {
		prev := series[len(series)-1].Value
		series = append(series, Point{
			Value: EMAUpdate(prev, candles[idx].Close, period),
			Date:  candles[idx].Date,
		})
	}

	return series, nil
}

// EMAValue computes the latest exponential moving average point for the
// provided candles.
func EMAValue(candles []*shared.Candlestick, period int) (Point, error) {
	series, err := EMASeries(candles, period)
	if err != nil {
		return Point{}, err
	}

	return series[len(series)-1], nil
}

// EMASlope returns the change of the provided ema series over the trailing
// lookback points.
func EMASlope(series []Point, lookback int) (float64, error) {
	if lookback <= 0 {
		return 0, fmt.Errorf("slope lookback must be positive, got %d: %w",
			lookback, shared.ErrInvalidParameter)
	}
	if len(series) < lookback+1 {
		return 0, fmt.Errorf("slope(%d) needs %d ema points, got %d: %w",
			lookback, lookback+1, len(series), shared.ErrInsufficientData)
	}

	last := series[len(series)-1].Value
	ref := series[len(series)-1-lookback].Value

	return last - ref, nil
}
