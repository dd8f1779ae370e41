package risk

import (
	"math"
	"testing"
	"time"

	"github.com/dnldd/confluence/shared"
	"github.com/peterldowns/testy/assert"
)

func calmConditions() shared.MarketConditions {
	return shared.MarketConditions{
		Market:         "^GSPC",
		Volatility:     shared.NormalVolatility,
		LiquidityScore: 0.8,
	}
}

func triggerNames(result BreakerResult) []string {
	names := make([]string, 0, len(result.Triggers))
	for idx := range result.Triggers {
		names = append(names, result.Triggers[idx].Name)
	}
	return names
}

func TestCheckCircuitBreakersClean(t *testing.T) {
	params := DefaultParams()
	account := healthyAccount()
	conditions := calmConditions()

	result := CheckCircuitBreakers(&account, &conditions, &params)
	assert.False(t, result.Triggered)
	assert.Equal(t, 0, len(result.Triggers))
	assert.Equal(t, time.Duration(0), result.Cooldown)
}

func TestCheckCircuitBreakersDrawdown(t *testing.T) {
	params := DefaultParams()
	conditions := calmConditions()

	// A 6% drawdown against a 5% ceiling trips the drawdown breaker with a
	// nonzero cooldown.
	account := healthyAccount()
	account.CurrentDrawdown = 0.06
	result := CheckCircuitBreakers(&account, &conditions, &params)
	assert.True(t, result.Triggered)
	assert.In(t, maxDrawdownBreaker, triggerNames(result))
	assert.True(t, result.Cooldown > 0)

	// The boundary is a strict inequality: drawdown equal to the ceiling
	// does not trip.
	account.CurrentDrawdown = params.MaxDrawdownPercent
	result = CheckCircuitBreakers(&account, &conditions, &params)
	assert.False(t, result.Triggered)

	account.CurrentDrawdown = math.Nextafter(params.MaxDrawdownPercent, 1)
	result = CheckCircuitBreakers(&account, &conditions, &params)
	assert.True(t, result.Triggered)
}

func TestCheckCircuitBreakersDailyLoss(t *testing.T) {
	params := DefaultParams()
	conditions := calmConditions()

	account := healthyAccount()
	account.DailyPnL = -(params.MaxDailyLossPercent*account.TotalEquity + 1)
	result := CheckCircuitBreakers(&account, &conditions, &params)
	assert.True(t, result.Triggered)
	assert.In(t, maxDailyLossBreaker, triggerNames(result))
}

func TestCheckCircuitBreakersConditions(t *testing.T) {
	params := DefaultParams()

	account := healthyAccount()
	conditions := calmConditions()
	conditions.Volatility = shared.ExtremeVolatility
	result := CheckCircuitBreakers(&account, &conditions, &params)
	assert.True(t, result.Triggered)
	assert.In(t, volatilityBreaker, triggerNames(result))

	conditions = calmConditions()
	conditions.LiquidityScore = 0.1
	result = CheckCircuitBreakers(&account, &conditions, &params)
	assert.True(t, result.Triggered)
	assert.In(t, liquidityBreaker, triggerNames(result))

	// Disabled breakers do not trip.
	params.VolatilityBreaker = false
	params.LiquidityBreaker = false
	conditions.Volatility = shared.ExtremeVolatility
	result = CheckCircuitBreakers(&account, &conditions, &params)
	assert.False(t, result.Triggered)
}

func TestCheckCircuitBreakersFailClosed(t *testing.T) {
	params := DefaultParams()
	account := healthyAccount()
	conditions := calmConditions()

	// Missing snapshots trip the breaker rather than passing it.
	result := CheckCircuitBreakers(nil, &conditions, &params)
	assert.True(t, result.Triggered)
	assert.In(t, breakerFault, triggerNames(result))
	assert.True(t, result.Cooldown > 0)

	result = CheckCircuitBreakers(&account, nil, &params)
	assert.True(t, result.Triggered)
	assert.In(t, breakerFault, triggerNames(result))

	// Unusable snapshot values also fail closed.
	account.CurrentDrawdown = math.NaN()
	result = CheckCircuitBreakers(&account, &conditions, &params)
	assert.True(t, result.Triggered)
	assert.In(t, breakerFault, triggerNames(result))
}

func TestCheckCircuitBreakersAccumulatesTriggers(t *testing.T) {
	params := DefaultParams()

	account := healthyAccount()
	account.CurrentDrawdown = 0.1
	account.DailyPnL = -1000
	conditions := calmConditions()
	conditions.Volatility = shared.ExtremeVolatility
	conditions.LiquidityScore = 0

	result := CheckCircuitBreakers(&account, &conditions, &params)
	assert.True(t, result.Triggered)
	assert.Equal(t, 4, len(result.Triggers))
}
