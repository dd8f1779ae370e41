package indicator

import (
	"fmt"
	"math"

	"github.com/dnldd/confluence/shared"
)

// TrueRange returns the true range spanned by the current candle given its
// predecessor.
func TrueRange(current *shared.Candlestick, prev *shared.Candlestick) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - prev.Close)
	lowClose := math.Abs(current.Low - prev.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}

// ATRSeries computes the average true range series for the provided candles
// using wilder smoothing. The first point is seeded with a simple average of
// the first period true ranges, so at least period+1 candles are required.
func ATRSeries(candles []*shared.Candlestick, period int) ([]Point, error) {
	if period <= 0 {
		return nil, fmt.Errorf("atr period must be positive, got %d: %w",
			period, shared.ErrInvalidParameter)
	}
	if len(candles) < period+1 {
		return nil, fmt.Errorf("atr(%d) needs %d candles, got %d: %w",
			period, period+1, len(candles), shared.ErrInsufficientData)
	}

	// True ranges start at the second candle, the first has no prior close.
	trueRanges := make([]float64, 0, len(candles)-1)
	for idx := 1; idx < len(candles); idx++ {
		trueRanges = append(trueRanges, TrueRange(candles[idx], candles[idx-1]))
	}

	var sum float64
	for idx := range period {
		sum += trueRanges[idx]
	}

	series := make([]Point, 0, len(trueRanges)-period+1)
	series = append(series, Point{
		Value: sum / float64(period),
		Date:  candles[period].Date,
	})

	for idx := period; idx < len(trueRanges); idx++ {
		prev := series[len(series)-1].Value
		series = append(series, Point{
			Value: (prev*float64(period-1) + trueRanges[idx]) / float64(period),
			Date:  candles[idx+1].Date,
		})
	}

	return series, nil
}

// ATRValue computes the latest average true range point for the provided
// candles.
func ATRValue(candles []*shared.Candlestick, period int) (Point, error) {
	series, err := ATRSeries(candles, period)
	if err != nil {
		return Point{}, err
	}

	return series[len(series)-1], nil
}
