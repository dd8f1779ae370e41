package risk

import (
	"fmt"
	"math"

	"github.com/dnldd/confluence/shared"
)

// Volatility regime sizing multipliers.
const (
	lowVolatilityPremium      = 1.1
	highVolatilityDiscount    = 0.75
	extremeVolatilityDiscount = 0.5
	// maxDrawdownSizeReduction is the sizing reduction applied as drawdown
	// nears its ceiling.
	maxDrawdownSizeReduction = 0.5
)

// Performance represents the historical trade performance backing kelly
// sizing for a market.
type Performance struct {
	Market string
	// Trades is the closed trade count.
	Trades uint32
	// WinRate is the fraction of winning trades, in [0, 1].
	WinRate float64
	// WinLossRatio is the average win over the average loss.
	WinLossRatio float64
	// AvgWin and AvgLoss are the average winning and losing pnl magnitudes.
	AvgWin  float64
	AvgLoss float64
	// TotalPnL is the cumulative realized pnl.
	TotalPnL float64
}

// KellyFraction returns the capped kelly-optimal risk fraction for the
// provided win rate and win/loss ratio. Degenerate inputs resolve to zero.
func KellyFraction(winRate float64, winLossRatio float64, maxFraction float64) float64 {
	if winLossRatio <= 0 || winRate <= 0 || winRate > 1 {
		return 0
	}

	fraction := (winLossRatio*winRate - (1 - winRate)) / winLossRatio
	if fraction < 0 {
		return 0
	}
	if fraction > maxFraction {
		return maxFraction
	}

	return fraction
}

// Sizing represents a position sizing decision and its components.
type Sizing struct {
	// Quantity is the final position size in units after all adjustments.
	Quantity float64
	// FixedFractional is the unadjusted fixed-fractional size component.
	FixedFractional float64
	// Kelly is the kelly-optimal size component, zero when kelly is unused.
	Kelly float64
	// RiskAmount is the equity at risk between entry and stop.
	RiskAmount float64
	// VolatilityMultiplier and DrawdownMultiplier are the applied adjustments.
	VolatilityMultiplier float64
	DrawdownMultiplier   float64
	// Notional is the final position notional at the entry price.
	Notional float64
}

// volatilityMultiplier returns the sizing multiplier for the provided regime.
func volatilityMultiplier(regime shared.VolatilityRegime) float64 {
	switch regime {
	case shared.LowVolatility:
		return lowVolatilityPremium
	case shared.HighVolatility:
		return highVolatilityDiscount
	case shared.ExtremeVolatility:
		return extremeVolatilityDiscount
	default:
		return 1
	}
}

// drawdownMultiplier returns the sizing multiplier for the provided drawdown,
// reducing linearly to half size as drawdown nears its ceiling.
func drawdownMultiplier(drawdown float64, ceiling float64) float64 {
	if drawdown <= 0 || ceiling <= 0 {
		return 1
	}

	fraction := drawdown / ceiling
	if fraction > 1 {
		fraction = 1
	}

	return 1 - maxDrawdownSizeReduction*fraction
}

// CalculatePositionSize sizes a position for the provided signal. The fixed
// fractional size is blended against a capped kelly-optimal size when enough
// performance history exists, always taking the more conservative of the two,
// then adjusted for volatility and drawdown and clamped to the exchange
// minimum and the equity ceiling.
func CalculatePositionSize(signal *shared.TradingSignal, account *shared.AccountState,
	conditions *shared.MarketConditions, performance *Performance, params *Params) (*Sizing, error) {
	riskPerUnit := signal.RiskPerUnit()
	if riskPerUnit <= 0 {
		return nil, fmt.Errorf("%w: signal entry equals stop", shared.ErrInvalidParameter)
	}
	if signal.Entry <= 0 {
		return nil, fmt.Errorf("%w: signal entry must be positive", shared.ErrInvalidParameter)
	}
	if account.TotalEquity <= 0 {
		return nil, fmt.Errorf("%w: account equity must be positive", shared.ErrInvalidParameter)
	}

	sizing := &Sizing{
		RiskAmount:           account.TotalEquity * params.RiskPercent,
		VolatilityMultiplier: volatilityMultiplier(conditions.Volatility),
		DrawdownMultiplier:   drawdownMultiplier(account.CurrentDrawdown, params.MaxDrawdownPercent),
	}
	sizing.FixedFractional = sizing.RiskAmount / riskPerUnit

	quantity := sizing.FixedFractional
	if performance != nil && performance.Trades >= params.MinKellyTrades {
		fraction := KellyFraction(performance.WinRate, performance.WinLossRatio, params.MaxKellyFraction)
		sizing.Kelly = account.TotalEquity * fraction / riskPerUnit
		quantity = math.Min(quantity, sizing.Kelly)
	}

	quantity *= sizing.VolatilityMultiplier * sizing.DrawdownMultiplier

	if quantity < params.MinPositionSize {
		quantity = params.MinPositionSize
	}

	ceiling := account.TotalEquity * params.MaxPositionPercent / signal.Entry
	if quantity > ceiling {
		quantity = ceiling
	}

	sizing.Quantity = quantity
	sizing.Notional = quantity * signal.Entry

	return sizing, nil
}
