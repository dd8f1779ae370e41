package shared

import (
	"time"

	"github.com/google/uuid"
)

// StatusCode represents a request or signal status code.
type StatusCode int

const (
	Processing StatusCode = iota
	Processed
)

// TradingSignal represents a scored trading signal produced by a full
// evaluation pass. It is immutable, one per evaluation.
type TradingSignal struct {
	ID        string
	Market    string
	Timeframe Timeframe
	Direction Direction
	// Entry is the proposed entry price, the latest entry timeframe close.
	Entry float64
	// StopLoss is the initial protective stop for the setup.
	StopLoss float64
	// SecondaryStop is the structural stop at the trend channel band.
	SecondaryStop float64
	// Targets are the profit targets at 1R, 2R and 3R.
	Targets [3]float64
	// Confidence is the ratio of validated factors, in [0, 1].
	Confidence float64
	Reasons    []Reason
	Evidence   Evidence
	CreatedOn  time.Time
	Status     chan StatusCode
}

// NewTradingSignal initializes a new trading signal.
func NewTradingSignal(market string, timeframe Timeframe, direction Direction, entry float64,
	stopLoss float64, secondaryStop float64, targets [3]float64, confidence float64,
	reasons []Reason, evidence Evidence, created time.Time) TradingSignal {
	return TradingSignal{
		ID:            uuid.New().String(),
		Market:        market,
		Timeframe:     timeframe,
		Direction:     direction,
		Entry:         entry,
		StopLoss:      stopLoss,
		SecondaryStop: secondaryStop,
		Targets:       targets,
		Confidence:    confidence,
		Reasons:       reasons,
		Evidence:      evidence,
		CreatedOn:     created,
		Status:        make(chan StatusCode, 1),
	}
}

// RiskPerUnit returns the initial risk distance between entry and stop.
func (s *TradingSignal) RiskPerUnit() float64 {
	risk := s.Entry - s.StopLoss
	if risk < 0 {
		risk = -risk
	}
	return risk
}

// ExitSignal represents an exit signal for a position.
type ExitSignal struct {
	Market    string
	Timeframe Timeframe
	Direction Direction
	Price     float64
	Reasons   []Reason
	CreatedOn time.Time
	Status    chan StatusCode
}

// NewExitSignal initializes a new exit signal.
func NewExitSignal(market string, timeframe Timeframe, direction Direction, price float64,
	reasons []Reason, created time.Time) ExitSignal {
	return ExitSignal{
		Market:    market,
		Timeframe: timeframe,
		Direction: direction,
		Price:     price,
		Reasons:   reasons,
		CreatedOn: created,
		Status:    make(chan StatusCode, 1),
	}
}
