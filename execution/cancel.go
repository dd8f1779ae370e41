package execution

import (
	"fmt"
	"time"

	"github.com/dnldd/confluence/shared"
)

// CancelAdvice represents the cancellation advice for a pending order.
type CancelAdvice struct {
	// Cancel indicates the order should be cancelled.
	Cancel bool
	// Reasons carries the contributing observations for audit.
	Reasons []string
	// Urgency grades how promptly the advice should be acted on.
	Urgency   shared.Urgency
	CreatedOn time.Time
}

// ShouldCancelOrder advises whether a pending order should be cancelled given
// the current market conditions against those at submission. Hard triggers
// (volatility spike, liquidity collapse, age timeout) force cancellation;
// softer signals like spread widening only raise urgency.
func (a *Advisor) ShouldCancelOrder(order *Order, current *shared.MarketConditions,
	original *shared.MarketConditions, now time.Time) CancelAdvice {
	advice := CancelAdvice{Urgency: shared.NormalUrgency, CreatedOn: now}

	if original.ATR > 0 && current.ATR/original.ATR > a.cfg.VolatilitySpikeRatio {
		advice.Cancel = true
		advice.Urgency = shared.HighUrgency
		advice.Reasons = append(advice.Reasons,
			fmt.Sprintf("volatility spiked %.2fx beyond threshold %.2fx",
				current.ATR/original.ATR, a.cfg.VolatilitySpikeRatio))
	}

	if current.LiquidityScore < a.cfg.LiquidityFloor {
		advice.Cancel = true
		advice.Urgency = shared.HighUrgency
		advice.Reasons = append(advice.Reasons,
			fmt.Sprintf("liquidity score %.2f collapsed below floor %.2f",
				current.LiquidityScore, a.cfg.LiquidityFloor))
	}

	if now.Sub(order.CreatedOn) > a.cfg.OrderTimeout {
		advice.Cancel = true
		advice.Reasons = append(advice.Reasons,
			fmt.Sprintf("order age %s past timeout %s", now.Sub(order.CreatedOn), a.cfg.OrderTimeout))
	}

	// Spread widening alone never forces a cancel, it only raises urgency.
	if original.SpreadPercent > 0 &&
		current.SpreadPercent/original.SpreadPercent > a.cfg.SpreadWidenRatio {
		advice.Reasons = append(advice.Reasons,
			fmt.Sprintf("spread widened %.2fx since submission",
				current.SpreadPercent/original.SpreadPercent))
		if advice.Urgency < shared.HighUrgency {
			advice.Urgency = shared.HighUrgency
		}
	}

	return advice
}
