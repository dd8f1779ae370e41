package execution

import (
	"fmt"
	"time"

	"github.com/dnldd/confluence/shared"
)

// Slippage multiplier factors applied in turn to the base slippage.
const (
	wideSpreadMultiplier    = 1.5
	worstCaseMultiplier     = 2.5
	deepLiquidityMultiplier = 0.8
	thinLiquidityMultiplier = 1.5
	noLiquidityMultiplier   = 2
	lowVolatilityMultiplier = 0.8
)

// SlippageEstimate represents the slippage budget for an order.
type SlippageEstimate struct {
	// Expected is the expected slippage as a fraction of price.
	Expected float64
	// Max is the maximum acceptable slippage, capped at the hard ceiling.
	Max float64
	// WorstCase is the worst case slippage, capped at the hard ceiling.
	WorstCase float64
	// LimitPrice is the recommended limit price absorbing the max slippage.
	LimitPrice float64
}

// liquidityMultiplier grades the provided liquidity score into a slippage
// multiplier.
func liquidityMultiplier(score float64) float64 {
	switch {
	case score >= 0.8:
		return deepLiquidityMultiplier
	case score >= 0.5:
		return 1
	case score >= 0.2:
		return thinLiquidityMultiplier
	default:
		return noLiquidityMultiplier
	}
}

// volatilityMultiplier grades the provided volatility regime into a slippage
// multiplier.
func volatilityMultiplier(regime shared.VolatilityRegime) float64 {
	switch regime {
	case shared.LowVolatility:
		return lowVolatilityMultiplier
	case shared.HighVolatility:
		return 1.5
	case shared.ExtremeVolatility:
		return 2.5
	default:
		return 1
	}
}

// orderSizeMultiplier grades the order size relative to the trailing average
// volume into a slippage multiplier.
func orderSizeMultiplier(quantity float64, averageVolume float64) float64 {
	if averageVolume <= 0 {
		// Without volume context assume a sizeable order.
		return 1.5
	}

	ratio := quantity / averageVolume
	switch {
	case ratio < 0.01:
		return 1
	case ratio < 0.05:
		return 1.2
	case ratio < 0.1:
		return 1.5
	default:
		return 2
	}
}

// timeOfDayMultiplier widens the slippage budget outside the high volume
// sessions.
func timeOfDayMultiplier(conditions *shared.MarketConditions) float64 {
	loc, err := time.LoadLocation(shared.NewYorkLocation)
	if err != nil {
		return 1.5
	}

	session, err := shared.CurrentSession(conditions.CreatedOn.In(loc))
	if err != nil || session == "" {
		return 1.5
	}

	switch session {
	case shared.London, shared.NewYork:
		return 1
	default:
		return 1.3
	}
}

// CalculateMaxSlippage derives the slippage budget for the provided order
// under the provided market conditions.
func (a *Advisor) CalculateMaxSlippage(order *Order, conditions *shared.MarketConditions) (*SlippageEstimate, error) {
	if order.Quantity <= 0 {
		return nil, fmt.Errorf("%w: order quantity must be positive", shared.ErrInvalidParameter)
	}
	if conditions.CurrentPrice <= 0 {
		return nil, fmt.Errorf("%w: market price must be positive", shared.ErrInvalidParameter)
	}

	expected := a.cfg.BaseSlippagePercent *
		liquidityMultiplier(conditions.LiquidityScore) *
		volatilityMultiplier(conditions.Volatility) *
		orderSizeMultiplier(order.Quantity, conditions.AverageVolume) *
		timeOfDayMultiplier(conditions)

	estimate := &SlippageEstimate{
		Expected:  expected,
		Max:       expected * wideSpreadMultiplier,
		WorstCase: expected * worstCaseMultiplier,
	}
	if estimate.Max > a.cfg.MaxSlippagePercent {
		estimate.Max = a.cfg.MaxSlippagePercent
	}
	if estimate.WorstCase > a.cfg.MaxSlippagePercent {
		estimate.WorstCase = a.cfg.MaxSlippagePercent
	}

	switch order.Direction {
	case shared.Long:
		estimate.LimitPrice = conditions.CurrentPrice * (1 + estimate.Max)
	case shared.Short:
		estimate.LimitPrice = conditions.CurrentPrice * (1 - estimate.Max)
	}

	return estimate, nil
}
