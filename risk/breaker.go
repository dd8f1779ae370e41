package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/dnldd/confluence/shared"
)

// Circuit breaker check names, carried on triggered results for audit.
const (
	maxDrawdownBreaker  = "MaxDrawdown"
	maxDailyLossBreaker = "MaxDailyLoss"
	volatilityBreaker   = "ExtremeVolatility"
	liquidityBreaker    = "LowLiquidity"
	breakerFault        = "BreakerFault"
)

// BreakerTrigger represents a single triggered circuit breaker.
type BreakerTrigger struct {
	// Name identifies the originating breaker check.
	Name string
	// Detail is a human readable description of the trigger.
	Detail string
}

// BreakerResult represents the outcome of a circuit breaker evaluation.
type BreakerResult struct {
	// Triggered indicates whether any breaker tripped.
	Triggered bool
	// Triggers carries every tripped breaker.
	Triggers []BreakerTrigger
	// Cooldown is how long new trades are blocked, zero when not triggered.
	Cooldown  time.Duration
	CreatedOn time.Time
}

// CheckCircuitBreakers independently evaluates every enabled circuit breaker
// against the account and market condition snapshots. Evaluation faults fail
// closed: an unusable input trips the breaker rather than passing it.
func CheckCircuitBreakers(account *shared.AccountState, conditions *shared.MarketConditions, params *Params) BreakerResult {
	result := BreakerResult{CreatedOn: time.Now()}

	trigger := func(name string, detail string) {
		result.Triggered = true
		result.Triggers = append(result.Triggers, BreakerTrigger{Name: name, Detail: detail})
	}

	if account == nil || conditions == nil {
		trigger(breakerFault, "missing account or market conditions snapshot")
		result.Cooldown = params.BreakerCooldown
		return result
	}
	if math.IsNaN(account.CurrentDrawdown) || math.IsInf(account.CurrentDrawdown, 0) ||
		math.IsNaN(account.DailyPnL) || math.IsInf(account.DailyPnL, 0) {
		trigger(breakerFault, "unusable account snapshot values")
		result.Cooldown = params.BreakerCooldown
		return result
	}

	if params.DrawdownBreaker && account.CurrentDrawdown > params.MaxDrawdownPercent {
		trigger(maxDrawdownBreaker, fmt.Sprintf("drawdown %.4f exceeds ceiling %.4f",
			account.CurrentDrawdown, params.MaxDrawdownPercent))
	}

	if params.DailyLossBreaker && account.DailyPnL < 0 &&
		-account.DailyPnL > params.MaxDailyLossPercent*account.TotalEquity {
		trigger(maxDailyLossBreaker, fmt.Sprintf("daily loss %.2f exceeds ceiling %.2f",
			-account.DailyPnL, params.MaxDailyLossPercent*account.TotalEquity))
	}

	if params.VolatilityBreaker && conditions.Volatility == shared.ExtremeVolatility {
		trigger(volatilityBreaker, "extreme volatility regime")
	}

	if params.LiquidityBreaker && conditions.LiquidityScore < params.MinLiquidityScore {
		trigger(liquidityBreaker, fmt.Sprintf("liquidity score %.2f below floor %.2f",
			conditions.LiquidityScore, params.MinLiquidityScore))
	}

	if result.Triggered {
		result.Cooldown = params.BreakerCooldown
	}

	return result
}
