package risk

import (
	"errors"
	"fmt"
	"time"
)

// Params represents the risk engine parameters. They are read at startup and
// may only change between evaluations.
type Params struct {
	// MinEquity is the account equity floor for new trades.
	MinEquity float64
	// MaxOpenPositions caps concurrently open positions.
	MaxOpenPositions uint32
	// MaxExposurePercent caps total open notional over equity.
	MaxExposurePercent float64
	// MaxDrawdownPercent is the intraday drawdown ceiling.
	MaxDrawdownPercent float64
	// MaxDailyLossPercent caps realized daily losses over equity.
	MaxDailyLossPercent float64
	// MinTradeInterval is the minimum duration between fills.
	MinTradeInterval time.Duration
	// MinConfidence is the signal confidence floor for new trades.
	MinConfidence float64

	// RiskPercent is the fraction of equity risked per trade.
	RiskPercent float64
	// MaxPositionPercent caps a position's notional as a fraction of equity.
	MaxPositionPercent float64
	// MinPositionSize is the exchange minimum order size.
	MinPositionSize float64
	// MaxKellyFraction caps the kelly-optimal risk fraction.
	MaxKellyFraction float64
	// MinKellyTrades is the trade count below which kelly sizing is disabled.
	MinKellyTrades uint32

	// StopPercent is the fallback initial stop distance as a fraction of entry.
	StopPercent float64
	// BreakevenPercent is the breakeven stop distance as a fraction of entry.
	BreakevenPercent float64
	// TrailingActivationPercent is the unrealized profit fraction activating
	// the trailing stop.
	TrailingActivationPercent float64
	// TrailingDistancePercent is the trailing stop distance as a fraction of
	// the current price.
	TrailingDistancePercent float64
	// MaxHoldingDuration bounds how long a position may stay open.
	MaxHoldingDuration time.Duration

	// BreakerCooldown is how long triggered circuit breakers block new trades.
	BreakerCooldown time.Duration
	// MinLiquidityScore is the liquidity floor below which the liquidity
	// breaker trips.
	MinLiquidityScore float64
	// DrawdownBreaker, DailyLossBreaker, VolatilityBreaker and
	// LiquidityBreaker toggle the individual circuit breakers.
	DrawdownBreaker   bool
	DailyLossBreaker  bool
	VolatilityBreaker bool
	LiquidityBreaker  bool
}

// DefaultParams returns sane default risk parameters.
func DefaultParams() Params {
	return Params{
		MinEquity:                 1000,
		MaxOpenPositions:          3,
		MaxExposurePercent:        0.5,
		MaxDrawdownPercent:        0.05,
		MaxDailyLossPercent:       0.03,
		MinTradeInterval:          time.Minute * 15,
		MinConfidence:             0.6,
		RiskPercent:               0.02,
		MaxPositionPercent:        0.25,
		MinPositionSize:           1,
		MaxKellyFraction:          0.25,
		MinKellyTrades:            20,
		StopPercent:               0.01,
		BreakevenPercent:          0.005,
		TrailingActivationPercent: 0.01,
		TrailingDistancePercent:   0.005,
		MaxHoldingDuration:        time.Hour * 8,
		BreakerCooldown:           time.Hour,
		MinLiquidityScore:         0.2,
		DrawdownBreaker:           true,
		DailyLossBreaker:          true,
		VolatilityBreaker:         true,
		LiquidityBreaker:          true,
	}
}

// Validate asserts the risk parameters are sane.
func (p *Params) Validate() error {
	var errs error

	if p.MinEquity < 0 {
		errs = errors.Join(errs, fmt.Errorf("minimum equity cannot be negative"))
	}
	if p.MaxOpenPositions == 0 {
		errs = errors.Join(errs, fmt.Errorf("max open positions must be positive"))
	}
	if p.MaxExposurePercent <= 0 {
		errs = errors.Join(errs, fmt.Errorf("max exposure percent must be positive"))
	}
	if p.MaxDrawdownPercent <= 0 || p.MaxDrawdownPercent >= 1 {
		errs = errors.Join(errs, fmt.Errorf("max drawdown percent must be in (0, 1)"))
	}
	if p.MaxDailyLossPercent <= 0 || p.MaxDailyLossPercent >= 1 {
		errs = errors.Join(errs, fmt.Errorf("max daily loss percent must be in (0, 1)"))
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		errs = errors.Join(errs, fmt.Errorf("minimum confidence must be in [0, 1]"))
	}
	if p.RiskPercent <= 0 || p.RiskPercent >= 1 {
		errs = errors.Join(errs, fmt.Errorf("risk percent must be in (0, 1)"))
	}
	if p.MaxPositionPercent <= 0 || p.MaxPositionPercent > 1 {
		errs = errors.Join(errs, fmt.Errorf("max position percent must be in (0, 1]"))
	}
	if p.MinPositionSize < 0 {
		errs = errors.Join(errs, fmt.Errorf("minimum position size cannot be negative"))
	}
	if p.MaxKellyFraction < 0 || p.MaxKellyFraction > 1 {
		errs = errors.Join(errs, fmt.Errorf("max kelly fraction must be in [0, 1]"))
	}
	if p.StopPercent <= 0 || p.StopPercent >= 1 {
		errs = errors.Join(errs, fmt.Errorf("stop percent must be in (0, 1)"))
	}
	if p.TrailingActivationPercent <= 0 || p.TrailingDistancePercent <= 0 {
		errs = errors.Join(errs, fmt.Errorf("trailing stop percents must be positive"))
	}
	if p.MaxHoldingDuration <= 0 {
		errs = errors.Join(errs, fmt.Errorf("max holding duration must be positive"))
	}
	if p.BreakerCooldown <= 0 {
		errs = errors.Join(errs, fmt.Errorf("breaker cooldown must be positive"))
	}
	if p.MinLiquidityScore < 0 || p.MinLiquidityScore > 1 {
		errs = errors.Join(errs, fmt.Errorf("minimum liquidity score must be in [0, 1]"))
	}

	return errs
}
