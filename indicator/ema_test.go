package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dnldd/confluence/shared"
	"github.com/peterldowns/testy/assert"
)

// makeCandles builds a candle series from the provided closes, spacing the
// close times five minutes apart.
func makeCandles(closes []float64) []*shared.Candlestick {
	start := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	candles := make([]*shared.Candlestick, 0, len(closes))
	for idx := range closes {
		open := closes[idx]
		if idx > 0 {
			open = closes[idx-1]
		}

		candles = append(candles, &shared.Candlestick{
			Open:      open,
			Close:     closes[idx],
			High:      math.Max(open, closes[idx]) + 0.5,
			Low:       math.Min(open, closes[idx]) - 0.5,
			Volume:    100,
			Date:      start.Add(time.Duration(idx) * time.Minute * 5),
			Market:    "^GSPC",
			Timeframe: shared.FiveMinute,
		})
	}

	return candles
}

func TestEMASeries(t *testing.T) {
	// Ensure a zero or negative period is rejected at the call boundary.
	candles := makeCandles([]float64{1, 2, 3, 4, 5})
	_, err := EMASeries(candles, 0)
	assert.True(t, errors.Is(err, shared.ErrInvalidParameter))

	_, err = EMASeries(candles, -3)
	assert.True(t, errors.Is(err, shared.ErrInvalidParameter))

	// Ensure fewer than period+1 candles yields insufficient data.
	_, err = EMASeries(candles, 5)
	assert.True(t, errors.Is(err, shared.ErrInsufficientData))

	// Ensure a constant series yields the constant within tolerance.
	period := 4
	constant := 42.5
	flat := make([]float64, period*5)
	for idx := range flat {
		flat[idx] = constant
	}

	series, err := EMASeries(makeCandles(flat), period)
	assert.NoError(t, err)
	for idx := range series {
		if math.Abs(series[idx].Value-constant) > 1e-9 {
			t.Fatalf("constant series ema diverged: got %f, want %f", series[idx].Value, constant)
		}
	}

	// Ensure outputs are keyed by candle close time.
	candles = makeCandles([]float64{1, 2, 3, 4, 5, 6})
	series, err = EMASeries(candles, 4)
	assert.NoError(t, err)
	assert.Equal(t, series[len(series)-1].Date, candles[len(candles)-1].Date)
}

func TestEMAUpdateMatchesSeries(t *testing.T) {
	// Ensure rolling a series value forward incrementally matches a full
	// recomputation over the extended window.
	closes := []float64{10, 10.5, 10.2, 10.8, 11.1, 10.9, 11.4, 11.2}
	period := 3

	candles := makeCandles(closes)
	full, err := EMASeries(candles, period)
	assert.NoError(t, err)

	prefix, err := EMASeries(candles[:len(candles)-1], period)
	assert.NoError(t, err)

	rolled := EMAUpdate(prefix[len(prefix)-1].Value, closes[len(closes)-1], period)
	if math.Abs(rolled-full[len(full)-1].Value) > 1e-9 {
		t.Fatalf("incremental ema mismatch: got %f, want %f", rolled, full[len(full)-1].Value)
	}
}

func TestEMASlope(t *testing.T) {
	series := []Point{{Value: 1}, {Value: 2}, {Value: 3}, {Value: 5}}

	// Ensure the slope spans the trailing lookback points.
	slope, err := EMASlope(series, 2)
	assert.NoError(t, err)
	assert.Equal(t, slope, 3)

	// Ensure an oversized lookback yields insufficient data.
	_, err = EMASlope(series, 4)
	assert.True(t, errors.Is(err, shared.ErrInsufficientData))

	// Ensure a zero lookback is rejected.
	_, err = EMASlope(series, 0)
	assert.True(t, errors.Is(err, shared.ErrInvalidParameter))
}
