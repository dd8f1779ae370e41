package indicator

import "github.com/dnldd/confluence/shared"

const (
	// lowVolatilityPercentile bounds the low volatility regime.
	lowVolatilityPercentile = 0.25
	// highVolatilityPercentile bounds the normal volatility regime.
	highVolatilityPercentile = 0.75
	// extremeVolatilityPercentile bounds the high volatility regime.
	extremeVolatilityPercentile = 0.9
)

// PercentileRank returns the percentile rank of the provided value within the
// provided values, using the midpoint convention for ties so a value equal to
// the whole history ranks at 0.5. An empty history resolves to a neutral 0.5.
func PercentileRank(values []float64, value float64) float64 {
	if len(values) == 0 {
		return 0.5
	}

	var below, equal int
	for idx := range values {
		switch {
		case values[idx] < value:
			below++
		case values[idx] == value:
			equal++
		}
	}

	return (float64(below) + 0.5*float64(equal)) / float64(len(values))
}

// ClassifyVolatility classifies the provided atr against its recent history
// into a volatility regime. A degenerate history resolves to the normal
// regime, never an error.
func ClassifyVolatility(history []Point, current float64) shared.VolatilityRegime {
	if len(history) == 0 || current < 0 {
		return shared.NormalVolatility
	}

	values := make([]float64, 0, len(history))
	for idx := range history {
		values = append(values, history[idx].Value)
	}

	percentile := PercentileRank(values, current)
	switch {
	case percentile < lowVolatilityPercentile:
		return shared.LowVolatility
	case percentile < highVolatilityPercentile:
		return shared.NormalVolatility
	case percentile < extremeVolatilityPercentile:
		return shared.HighVolatility
	default:
		return shared.ExtremeVolatility
	}
}
