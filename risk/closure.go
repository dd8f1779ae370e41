package risk

import (
	"fmt"
	"time"

	"github.com/dnldd/confluence/shared"
)

// partialCloseFraction is the position fraction closed under extreme
// volatility.
const partialCloseFraction = 0.5

// ClosureAction represents the advised action for an open position.
type ClosureAction int

const (
	KeepOpen ClosureAction = iota
	PartialClose
	FullClose
)

// String stringifies the provided closure action.
func (a ClosureAction) String() string {
	switch a {
	case KeepOpen:
		return "keep open"
	case PartialClose:
		return "partial close"
	case FullClose:
		return "full close"
	default:
		return "unknown"
	}
}

// PositionState is the view of an open position consumed by closure checks.
type PositionState struct {
	Market       string
	Direction    shared.Direction
	EntryPrice   float64
	CurrentPrice float64
	Quantity     float64
	Stops        *StopLevels
	CreatedOn    time.Time
}

// ClosureDecision represents the outcome of a position closure evaluation.
type ClosureDecision struct {
	Action ClosureAction
	// Fraction is the position fraction to close, zero when keeping open.
	Fraction float64
	Reason   shared.Reason
	Urgency  shared.Urgency
	// RiskFactors annotates a keep-open decision with elevated risks.
	RiskFactors []string
	CreatedOn   time.Time
}

// stopBreached reports whether the current price breached the position's
// effective stop.
func stopBreached(position *PositionState) bool {
	if position.Stops == nil {
		return false
	}

	effective := position.Stops.EffectiveStop()
	switch position.Direction {
	case shared.Long:
		return position.CurrentPrice <= effective
	case shared.Short:
		return position.CurrentPrice >= effective
	default:
		return false
	}
}

// ShouldClosePosition evaluates the ordered closure checks for the provided
// position. The first firing check decides the action; a keep-open decision
// accumulates risk factor annotations instead.
func ShouldClosePosition(position *PositionState, account *shared.AccountState,
	conditions *shared.MarketConditions, params *Params, now time.Time) ClosureDecision {
	decision := ClosureDecision{CreatedOn: now}

	if stopBreached(position) {
		decision.Action = FullClose
		decision.Fraction = 1
		decision.Reason = shared.StopBreached
		decision.Urgency = shared.HighUrgency
		return decision
	}

	if account.CurrentDrawdown > params.MaxDrawdownPercent {
		decision.Action = FullClose
		decision.Fraction = 1
		decision.Reason = shared.DrawdownExceeded
		decision.Urgency = shared.EmergencyUrgency
		return decision
	}

	if conditions.Volatility == shared.ExtremeVolatility {
		decision.Action = PartialClose
		decision.Fraction = partialCloseFraction
		decision.Reason = shared.ExcessiveVolatility
		decision.Urgency = shared.HighUrgency
		return decision
	}

	if now.Sub(position.CreatedOn) > params.MaxHoldingDuration {
		decision.Action = FullClose
		decision.Fraction = 1
		decision.Reason = shared.MaxHoldingDuration
		decision.Urgency = shared.NormalUrgency
		return decision
	}

	decision.Action = KeepOpen
	if conditions.Volatility == shared.HighVolatility {
		decision.RiskFactors = append(decision.RiskFactors, "high volatility regime")
	}
	if account.CurrentDrawdown > params.MaxDrawdownPercent/2 {
		decision.RiskFactors = append(decision.RiskFactors,
			fmt.Sprintf("drawdown %.4f beyond half of ceiling", account.CurrentDrawdown))
	}
	if now.Sub(position.CreatedOn) > params.MaxHoldingDuration/2 {
		decision.RiskFactors = append(decision.RiskFactors, "past half of max holding duration")
	}
	if conditions.LiquidityScore < params.MinLiquidityScore*2 {
		decision.RiskFactors = append(decision.RiskFactors, "thinning liquidity")
	}

	return decision
}
