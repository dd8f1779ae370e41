package risk

import (
	"testing"

	"github.com/dnldd/confluence/shared"
	"github.com/peterldowns/testy/assert"
)

func TestKellyFractionBounds(t *testing.T) {
	const maxFraction = 0.25

	winRates := []float64{0, 0.1, 0.25, 0.4, 0.5, 0.6, 0.75, 0.9, 1}
	ratios := []float64{0.1, 0.5, 1, 1.5, 2, 3, 5}

	for _, winRate := range winRates {
		for _, ratio := range ratios {
			fraction := KellyFraction(winRate, ratio, maxFraction)
			assert.True(t, fraction >= 0)
			assert.True(t, fraction <= maxFraction)
		}
	}

	// Degenerate inputs resolve to zero.
	assert.Equal(t, float64(0), KellyFraction(0.6, 0, maxFraction))
	assert.Equal(t, float64(0), KellyFraction(0.6, -1, maxFraction))
	assert.Equal(t, float64(0), KellyFraction(1.2, 2, maxFraction))

	// A known edge: 60% win rate at 2:1 payoff gives (2*0.6-0.4)/2 = 0.4,
	// capped at the max fraction.
	assert.Equal(t, maxFraction, KellyFraction(0.6, 2, maxFraction))

	// A losing edge is floored at zero.
	assert.Equal(t, float64(0), KellyFraction(0.3, 1, maxFraction))
}

func TestCalculatePositionSizeFixedFractional(t *testing.T) {
	params := DefaultParams()
	params.MaxPositionPercent = 1

	// entry 100, stop 98, equity 10000, risk 2% sizes to
	// (10000*0.02)/2 = 100 units before adjustments.
	signal := testSignal(100, 98, 0.8)
	account := healthyAccount()
	conditions := &shared.MarketConditions{Market: "^GSPC", Volatility: shared.NormalVolatility}

	sizing, err := CalculatePositionSize(&signal, &account, conditions, nil, &params)
	assert.NoError(t, err)
	assert.Equal(t, float64(100), sizing.FixedFractional)
	assert.Equal(t, float64(100), sizing.Quantity)
	assert.Equal(t, float64(200), sizing.RiskAmount)
	assert.Equal(t, float64(0), sizing.Kelly)
	assert.Equal(t, float64(1), sizing.VolatilityMultiplier)
	assert.Equal(t, float64(1), sizing.DrawdownMultiplier)
}

func TestCalculatePositionSizeKellyBlend(t *testing.T) {
	params := DefaultParams()
	params.MaxPositionPercent = 1

	signal := testSignal(100, 98, 0.8)
	account := healthyAccount()
	conditions := &shared.MarketConditions{Market: "^GSPC", Volatility: shared.NormalVolatility}

	// A poor edge shrinks the kelly component below the fixed fractional
	// size, and the blend takes the more conservative of the two.
	performance := &Performance{
		Market:       "^GSPC",
		Trades:       50,
		WinRate:      0.4,
		WinLossRatio: 1.5,
	}

	// fraction = (1.5*0.4 - 0.6)/1.5 = 0, kelly quantity 0.
	sizing, err := CalculatePositionSize(&signal, &account, conditions, performance, &params)
	assert.NoError(t, err)
	assert.Equal(t, float64(0), sizing.Kelly)
	assert.Equal(t, params.MinPositionSize, sizing.Quantity)

	// A strong edge caps at the max kelly fraction, leaving the smaller
	// fixed fractional size in control.
	performance.WinRate = 0.65
	performance.WinLossRatio = 2
	sizing, err = CalculatePositionSize(&signal, &account, conditions, performance, &params)
	assert.NoError(t, err)
	// kelly quantity = 10000*0.25/2 = 1250, fixed fractional 100 wins.
	assert.Equal(t, float64(1250), sizing.Kelly)
	assert.Equal(t, float64(100), sizing.Quantity)

	// Below the minimum trade count kelly is disabled entirely.
	performance.Trades = 5
	sizing, err = CalculatePositionSize(&signal, &account, conditions, performance, &params)
	assert.NoError(t, err)
	assert.Equal(t, float64(0), sizing.Kelly)
	assert.Equal(t, float64(100), sizing.Quantity)
}

func TestCalculatePositionSizeAdjustments(t *testing.T) {
	params := DefaultParams()
	params.MaxPositionPercent = 1

	signal := testSignal(100, 98, 0.8)
	conditions := &shared.MarketConditions{Market: "^GSPC"}

	// High volatility discounts the size.
	account := healthyAccount()
	conditions.Volatility = shared.HighVolatility
	sizing, err := CalculatePositionSize(&signal, &account, conditions, nil, &params)
	assert.NoError(t, err)
	assert.Equal(t, float64(75), sizing.Quantity)

	// Extreme volatility halves it.
	conditions.Volatility = shared.ExtremeVolatility
	sizing, err = CalculatePositionSize(&signal, &account, conditions, nil, &params)
	assert.NoError(t, err)
	assert.Equal(t, float64(50), sizing.Quantity)

	// Low volatility grants a premium, capped by the equity ceiling.
	conditions.Volatility = shared.LowVolatility
	sizing, err = CalculatePositionSize(&signal, &account, conditions, nil, &params)
	assert.NoError(t, err)
	assert.Equal(t, lowVolatilityPremium, sizing.VolatilityMultiplier)
	assert.Equal(t, float64(100), sizing.Quantity)

	// Drawdown at the ceiling halves the size.
	conditions.Volatility = shared.NormalVolatility
	account.CurrentDrawdown = params.MaxDrawdownPercent
	sizing, err = CalculatePositionSize(&signal, &account, conditions, nil, &params)
	assert.NoError(t, err)
	assert.Equal(t, float64(0.5), sizing.DrawdownMultiplier)
	assert.Equal(t, float64(50), sizing.Quantity)

	// Halfway to the ceiling reduces linearly.
	account.CurrentDrawdown = params.MaxDrawdownPercent / 2
	sizing, err = CalculatePositionSize(&signal, &account, conditions, nil, &params)
	assert.NoError(t, err)
	assert.Equal(t, float64(0.75), sizing.DrawdownMultiplier)
}

func TestCalculatePositionSizeClamps(t *testing.T) {
	params := DefaultParams()

	// The equity percentage ceiling caps the final size.
	signal := testSignal(100, 99.9, 0.8)
	account := healthyAccount()
	conditions := &shared.MarketConditions{Market: "^GSPC", Volatility: shared.NormalVolatility}

	sizing, err := CalculatePositionSize(&signal, &account, conditions, nil, &params)
	assert.NoError(t, err)
	ceiling := account.TotalEquity * params.MaxPositionPercent / signal.Entry
	assert.Equal(t, ceiling, sizing.Quantity)
	assert.True(t, sizing.Notional <= account.TotalEquity*params.MaxPositionPercent)

	// A tiny raw size clamps up to the exchange minimum.
	params.RiskPercent = 0.001
	wide := testSignal(100, 50, 0.8)
	sizing, err = CalculatePositionSize(&wide, &account, conditions, nil, &params)
	assert.NoError(t, err)
	assert.Equal(t, params.MinPositionSize, sizing.Quantity)
}

func TestCalculatePositionSizeRejectsDegenerateInputs(t *testing.T) {
	params := DefaultParams()
	account := healthyAccount()
	conditions := &shared.MarketConditions{Market: "^GSPC"}

	// entry == stop is rejected at the call boundary.
	signal := testSignal(100, 100, 0.8)
	_, err := CalculatePositionSize(&signal, &account, conditions, nil, &params)
	assert.Error(t, err)

	signal = testSignal(100, 98, 0.8)
	account.TotalEquity = 0
	_, err = CalculatePositionSize(&signal, &account, conditions, nil, &params)
	assert.Error(t, err)
}
