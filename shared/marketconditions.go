package shared

import "time"

// VolatilityRegime classifies recent market volatility.
type VolatilityRegime int

const (
	LowVolatility VolatilityRegime = iota
	NormalVolatility
	HighVolatility
	ExtremeVolatility
)

// String stringifies the provided volatility regime.
func (v VolatilityRegime) String() string {
	switch v {
	case LowVolatility:
		return "low"
	case NormalVolatility:
		return "normal"
	case HighVolatility:
		return "high"
	case ExtremeVolatility:
		return "extreme"
	default:
		return "unknown"
	}
}

// MarketConditions captures the market context used for risk and execution
// decisions. It is recomputed from the candle store on demand and treated as
// an immutable snapshot by its consumers.
type MarketConditions struct {
	Market string
	// Volatility is the current volatility regime for the entry timeframe.
	Volatility VolatilityRegime
	// ATR is the current average true range backing the regime classification.
	ATR float64
	// LiquidityScore grades current participation from 0 (none) to 1 (deep).
	LiquidityScore float64
	// SpreadPercent approximates the effective spread as a fraction of price.
	SpreadPercent float64
	// AverageVolume is the trailing average volume for the entry timeframe.
	AverageVolume float64
	// CurrentPrice is the latest close for the market.
	CurrentPrice float64
	CreatedOn    time.Time
}
