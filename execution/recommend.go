package execution

import (
	"github.com/dnldd/confluence/shared"
)

// thinLiquidityScore is the liquidity score below which passive limit orders
// are preferred.
const thinLiquidityScore = 0.3

// Alternative represents a ranked order type alternative.
type Alternative struct {
	Type       OrderType
	Confidence float64
	Rationale  string
}

// Recommendation represents an order type recommendation with ranked
// alternatives.
type Recommendation struct {
	Type OrderType
	// LimitPrice is the recommended limit price, zero for market orders.
	LimitPrice   float64
	Confidence   float64
	Rationale    string
	Alternatives []Alternative
}

// RecommendOrderType recommends an order type for the provided signal under
// the provided market conditions and urgency. At least one ranked
// alternative is always returned.
func (a *Advisor) RecommendOrderType(signal *shared.TradingSignal, conditions *shared.MarketConditions,
	urgency shared.Urgency) Recommendation {
	switch {
	case urgency == shared.EmergencyUrgency:
		return Recommendation{
			Type:       MarketOrder,
			Confidence: 0.95,
			Rationale:  "emergency urgency demands immediate execution",
			Alternatives: []Alternative{
				{
					Type:       LimitOrder,
					Confidence: 0.2,
					Rationale:  "limit at signal entry risks missing the exit window",
				},
			},
		}
	case urgency == shared.HighUrgency:
		return Recommendation{
			Type:       MarketOrder,
			Confidence: 0.85,
			Rationale:  "high urgency favours certainty of fill over price",
			Alternatives: []Alternative{
				{
					Type:       LimitOrder,
					Confidence: 0.4,
					Rationale:  "limit at signal entry trades fill certainty for price",
				},
			},
		}
	case conditions.Volatility == shared.HighVolatility ||
		conditions.Volatility == shared.ExtremeVolatility:
		return Recommendation{
			Type:       MarketOrder,
			Confidence: 0.75,
			Rationale:  "fast moving prices make resting limit orders stale",
			Alternatives: []Alternative{
				{
					Type:       LimitOrder,
					Confidence: 0.45,
					Rationale:  "limit at signal entry caps slippage if the move stalls",
				},
			},
		}
	case conditions.LiquidityScore < thinLiquidityScore:
		return Recommendation{
			Type:       LimitOrder,
			LimitPrice: signal.Entry,
			Confidence: 0.8,
			Rationale:  "thin liquidity punishes aggressive market orders",
			Alternatives: []Alternative{
				{
					Type:       MarketOrder,
					Confidence: 0.3,
					Rationale:  "market order accepts the wide spread for certainty",
				},
			},
		}
	default:
		return Recommendation{
			Type:       LimitOrder,
			LimitPrice: signal.Entry,
			Confidence: 0.7,
			Rationale:  "normal conditions favour a limit at the signal entry",
			Alternatives: []Alternative{
				{
					Type:       MarketOrder,
					Confidence: 0.5,
					Rationale:  "market order guarantees participation in the setup",
				},
			},
		}
	}
}
