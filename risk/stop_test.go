package risk

import (
	"testing"
	"time"

	"github.com/dnldd/confluence/shared"
	"github.com/peterldowns/testy/assert"
)

func shortSignal(entry float64, stop float64) shared.TradingSignal {
	created := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	return shared.NewTradingSignal("^GSPC", shared.FiveMinute, shared.Short, entry, stop,
		stop+1, [3]float64{entry - 2, entry - 4, entry - 6}, 0.8, nil, shared.Evidence{}, created)
}

func TestCalculateStopLossLevels(t *testing.T) {
	params := DefaultParams()

	signal := testSignal(100, 98, 0.8)
	levels := CalculateStopLossLevels(&signal, &params)
	assert.Equal(t, float64(98), levels.Initial)
	assert.Equal(t, 100*(1+params.BreakevenPercent), levels.Breakeven)
	// emergency sits at twice the initial risk distance.
	assert.Equal(t, float64(96), levels.Emergency)
	assert.Equal(t, signal.SecondaryStop, levels.Technical)
	assert.Equal(t, signal.Targets, levels.Targets)
	assert.False(t, levels.TrailingActive)

	// A signal stop on the wrong side of the entry falls back to a percent
	// derived stop.
	signal = testSignal(100, 101, 0.8)
	levels = CalculateStopLossLevels(&signal, &params)
	assert.Equal(t, 100*(1-params.StopPercent), levels.Initial)

	short := shortSignal(100, 102)
	levels = CalculateStopLossLevels(&short, &params)
	assert.Equal(t, float64(102), levels.Initial)
	assert.Equal(t, 100*(1-params.BreakevenPercent), levels.Breakeven)
	assert.Equal(t, float64(104), levels.Emergency)
}

func TestUpdateTrailingLong(t *testing.T) {
	params := DefaultParams()
	signal := testSignal(100, 98, 0.8)
	levels := CalculateStopLossLevels(&signal, &params)

	// Below the activation threshold the trailing stop stays inactive.
	levels.UpdateTrailing(100.5, &params)
	assert.False(t, levels.TrailingActive)

	// At the threshold it activates a fixed distance below price.
	levels.UpdateTrailing(101, &params)
	assert.True(t, levels.TrailingActive)
	assert.Equal(t, 101*(1-params.TrailingDistancePercent), levels.Trailing)

	// Rising prices on a long never decrease the trailing stop.
	prices := []float64{101.5, 102, 101, 103, 102.5, 105, 104}
	prev := levels.Trailing
	for _, price := range prices {
		levels.UpdateTrailing(price, &params)
		assert.True(t, levels.Trailing >= prev)
		prev = levels.Trailing
	}
}

func TestUpdateTrailingShort(t *testing.T) {
	params := DefaultParams()
	signal := shortSignal(100, 102)
	levels := CalculateStopLossLevels(&signal, &params)

	levels.UpdateTrailing(99, &params)
	assert.True(t, levels.TrailingActive)
	assert.Equal(t, 99*(1+params.TrailingDistancePercent), levels.Trailing)

	// Falling prices on a short never increase the trailing stop.
	prices := []float64{98.5, 98, 99, 97, 97.5, 95}
	prev := levels.Trailing
	for _, price := range prices {
		levels.UpdateTrailing(price, &params)
		assert.True(t, levels.Trailing <= prev)
		prev = levels.Trailing
	}
}

func TestEffectiveStop(t *testing.T) {
	params := DefaultParams()
	signal := testSignal(100, 98, 0.8)
	levels := CalculateStopLossLevels(&signal, &params)

	// Before trailing activates, the tightest of the initial and technical
	// stops governs.
	assert.Equal(t, levels.Initial, levels.EffectiveStop())

	// Once trailing activates it tightens past the initial stop.
	levels.UpdateTrailing(103, &params)
	assert.True(t, levels.EffectiveStop() > levels.Initial)
	assert.Equal(t, levels.Trailing, levels.EffectiveStop())

	short := shortSignal(100, 102)
	levels = CalculateStopLossLevels(&short, &params)
	assert.Equal(t, levels.Initial, levels.EffectiveStop())

	levels.UpdateTrailing(97, &params)
	assert.True(t, levels.EffectiveStop() < levels.Initial)
}
