package execution

import (
	"fmt"
	"math"
	"time"

	"github.com/dnldd/confluence/shared"
)

// Relative slippage grade boundaries.
const (
	excellentSlippage  = 0.0005
	goodSlippage       = 0.001
	acceptableSlippage = 0.002
	poorSlippage       = 0.005
)

// QualityGrade grades the execution quality of a fill.
type QualityGrade int

const (
	Excellent QualityGrade = iota
	Good
	Acceptable
	Poor
	Unacceptable
)

// String stringifies the provided quality grade.
func (g QualityGrade) String() string {
	switch g {
	case Excellent:
		return "excellent"
	case Good:
		return "good"
	case Acceptable:
		return "acceptable"
	case Poor:
		return "poor"
	case Unacceptable:
		return "unacceptable"
	default:
		return "unknown"
	}
}

// QualityReport represents the execution quality analysis of a fill.
type QualityReport struct {
	Grade QualityGrade
	// SlippagePercent is the realized slippage as a fraction of the
	// expected price.
	SlippagePercent float64
	// SlowFill flags fills slower than the configured duration.
	SlowFill     bool
	FillDuration time.Duration
	CreatedOn    time.Time
}

// AnalyzeExecutionQuality grades the provided execution result against the
// expected price.
func (a *Advisor) AnalyzeExecutionQuality(order *Order, result *Result, expectedPrice float64) (*QualityReport, error) {
	if expectedPrice <= 0 {
		return nil, fmt.Errorf("%w: expected price must be positive", shared.ErrInvalidParameter)
	}
	if result.FillPrice <= 0 {
		return nil, fmt.Errorf("%w: fill price must be positive", shared.ErrInvalidParameter)
	}

	slippage := math.Abs(result.FillPrice-expectedPrice) / expectedPrice

	var grade QualityGrade
	switch {
	case slippage < excellentSlippage:
		grade = Excellent
	case slippage < goodSlippage:
		grade = Good
	case slippage < acceptableSlippage:
		grade = Acceptable
	case slippage < poorSlippage:
		grade = Poor
	default:
		grade = Unacceptable
	}

	report := &QualityReport{
		Grade:           grade,
		SlippagePercent: slippage,
		SlowFill:        result.FillDuration > a.cfg.SlowFillDuration,
		FillDuration:    result.FillDuration,
		CreatedOn:       result.FilledOn,
	}

	if report.SlowFill || grade >= Poor {
		a.cfg.Logger.Warn().Str("order", order.ID).Str("grade", grade.String()).
			Float64("slippage", slippage).Dur("duration", result.FillDuration).
			Msg("degraded execution quality")
	}

	return report, nil
}
