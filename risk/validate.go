package risk

import (
	"fmt"
	"time"

	"github.com/dnldd/confluence/shared"
)

// Weighted penalties contributed by each failing trade validation check.
const (
	equityPenalty     = 25
	exposurePenalty   = 20
	drawdownPenalty   = 20
	dailyLossPenalty  = 15
	intervalPenalty   = 10
	confidencePenalty = 10
)

// RiskLevel buckets a trade validation score.
type RiskLevel int

const (
	LowRisk RiskLevel = iota
	ModerateRisk
	HighRisk
	ExtremeRisk
)

// String stringifies the provided risk level.
func (l RiskLevel) String() string {
	switch l {
	case LowRisk:
		return "low"
	case ModerateRisk:
		return "moderate"
	case HighRisk:
		return "high"
	case ExtremeRisk:
		return "extreme"
	default:
		return "unknown"
	}
}

// riskLevel buckets the provided validation score.
func riskLevel(score uint32) RiskLevel {
	switch {
	case score < 25:
		return LowRisk
	case score < 50:
		return ModerateRisk
	case score < 75:
		return HighRisk
	default:
		return ExtremeRisk
	}
}

// CheckResult represents the outcome of a single trade validation check.
type CheckResult struct {
	// Name identifies the originating check for audit.
	Name string
	// Passed indicates whether the check passed.
	Passed bool
	// Penalty is the score penalty contributed when failing.
	Penalty uint32
	// Reason is a human readable description of the outcome.
	Reason string
}

// TradeValidation represents the full diagnostics of a trade validation pass.
type TradeValidation struct {
	// Pass indicates whether every check passed.
	Pass bool
	// Score is the accumulated penalty of failing checks, in [0, 100].
	Score uint32
	// Level buckets the score.
	Level RiskLevel
	// MaxSize is the recommended maximum position size in units.
	MaxSize float64
	// Checks carries every check outcome, pass or fail.
	Checks    []CheckResult
	CreatedOn time.Time
}

// ValidateTrade runs all trade validation checks for the provided signal
// against the account snapshot. Every check always runs so the result carries
// full diagnostics even after an early failure.
func ValidateTrade(signal *shared.TradingSignal, account *shared.AccountState, params *Params) TradeValidation {
	validation := TradeValidation{
		Checks:    make([]CheckResult, 0, 6),
		CreatedOn: time.Now(),
	}

	record := func(name string, passed bool, penalty uint32, reason string) {
		if !passed {
			validation.Score += penalty
		}
		validation.Checks = append(validation.Checks, CheckResult{
			Name:    name,
			Passed:  passed,
			Penalty: penalty,
			Reason:  reason,
		})
	}

	passed := account.TotalEquity >= params.MinEquity
	record("EquityFloor", passed, equityPenalty,
		fmt.Sprintf("account equity %.2f against floor %.2f", account.TotalEquity, params.MinEquity))

	passed = account.OpenPositions < params.MaxOpenPositions &&
		account.TotalExposurePercent < params.MaxExposurePercent
	record("ExposureLimits", passed, exposurePenalty,
		fmt.Sprintf("%d open positions, %.2f exposure against limits %d, %.2f",
			account.OpenPositions, account.TotalExposurePercent,
			params.MaxOpenPositions, params.MaxExposurePercent))

	passed = account.CurrentDrawdown <= params.MaxDrawdownPercent
	record("DrawdownCeiling", passed, drawdownPenalty,
		fmt.Sprintf("drawdown %.4f against ceiling %.4f", account.CurrentDrawdown, params.MaxDrawdownPercent))

	passed = account.DailyPnL >= 0 || -account.DailyPnL <= params.MaxDailyLossPercent*account.TotalEquity
	record("DailyLossCeiling", passed, dailyLossPenalty,
		fmt.Sprintf("daily pnl %.2f against loss ceiling %.2f", account.DailyPnL,
			params.MaxDailyLossPercent*account.TotalEquity))

	passed = account.LastTradeTime.IsZero() ||
		signal.CreatedOn.Sub(account.LastTradeTime) >= params.MinTradeInterval
	record("TradeInterval", passed, intervalPenalty,
		fmt.Sprintf("last fill at %s against minimum interval %s",
			account.LastTradeTime.Format(time.RFC3339), params.MinTradeInterval))

	passed = signal.Confidence >= params.MinConfidence
	record("ConfidenceFloor", passed, confidencePenalty,
		fmt.Sprintf("signal confidence %.2f against floor %.2f", signal.Confidence, params.MinConfidence))

	validation.Level = riskLevel(validation.Score)
	validation.Pass = validation.Score == 0

	// The recommended size ceiling shrinks as the score worsens.
	if signal.Entry > 0 {
		ceiling := account.TotalEquity * params.MaxPositionPercent / signal.Entry
		validation.MaxSize = ceiling * float64(100-validation.Score) / 100
	}

	return validation
}
