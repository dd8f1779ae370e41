package risk

import (
	"github.com/dnldd/confluence/shared"
)

// StopLevels represents the stop ladder and profit targets of a position.
type StopLevels struct {
	Direction  shared.Direction
	EntryPrice float64
	// Initial is the protective stop, signal-provided or percent derived.
	Initial float64
	// Breakeven is the stop locking in a small gain once trailing activates.
	Breakeven float64
	// Emergency is the disaster stop at twice the initial risk distance.
	Emergency float64
	// Technical is the structural stop at the trend channel band.
	Technical float64
	// Trailing is the trailing stop, zero until activated.
	Trailing       float64
	TrailingActive bool
	// Targets are the partial close profit targets.
	Targets [3]float64
}

// CalculateStopLossLevels derives the stop ladder for the provided signal.
// A signal stop on the wrong side of the entry falls back to a percent
// derived stop.
func CalculateStopLossLevels(signal *shared.TradingSignal, params *Params) *StopLevels {
	entry := signal.Entry
	levels := &StopLevels{
		Direction:  signal.Direction,
		EntryPrice: entry,
		Technical:  signal.SecondaryStop,
		Targets:    signal.Targets,
	}

	switch signal.Direction {
	case shared.Long:
		levels.Initial = signal.StopLoss
		if levels.Initial <= 0 || levels.Initial >= entry {
			levels.Initial = entry * (1 - params.StopPercent)
		}
		levels.Breakeven = entry * (1 + params.BreakevenPercent)
		levels.Emergency = entry - 2*(entry-levels.Initial)
	case shared.Short:
		levels.Initial = signal.StopLoss
		if levels.Initial <= entry {
			levels.Initial = entry * (1 + params.StopPercent)
		}
		levels.Breakeven = entry * (1 - params.BreakevenPercent)
		levels.Emergency = entry + 2*(levels.Initial-entry)
	}

	return levels
}

// UpdateTrailing advances the trailing stop for the provided current price.
// The trailing stop activates once unrealized profit reaches the activation
// threshold and only ever tightens afterwards.
func (s *StopLevels) UpdateTrailing(currentPrice float64, params *Params) {
	if s.EntryPrice <= 0 || currentPrice <= 0 {
		return
	}

	switch s.Direction {
	case shared.Long:
		profit := (currentPrice - s.EntryPrice) / s.EntryPrice
		if profit < params.TrailingActivationPercent {
			return
		}

		candidate := currentPrice * (1 - params.TrailingDistancePercent)
		if !s.TrailingActive || candidate > s.Trailing {
			s.Trailing = candidate
			s.TrailingActive = true
		}
	case shared.Short:
		profit := (s.EntryPrice - currentPrice) / s.EntryPrice
		if profit < params.TrailingActivationPercent {
			return
		}

		candidate := currentPrice * (1 + params.TrailingDistancePercent)
		if !s.TrailingActive || candidate < s.Trailing {
			s.Trailing = candidate
			s.TrailingActive = true
		}
	}
}

// EffectiveStop returns the most restrictive active stop for the position.
func (s *StopLevels) EffectiveStop() float64 {
	stops := []float64{s.Initial}
	if s.Technical > 0 {
		stops = append(stops, s.Technical)
	}
	if s.TrailingActive {
		stops = append(stops, s.Trailing, s.Breakeven)
	}

	effective := stops[0]
	for _, stop := range stops[1:] {
		switch s.Direction {
		case shared.Long:
			if stop > effective {
				effective = stop
			}
		case shared.Short:
			if stop < effective {
				effective = stop
			}
		}
	}

	return effective
}
