package position

import (
	"bytes"
	"fmt"
	"slices"
	"time"

	"github.com/dnldd/confluence/risk"
	"github.com/dnldd/confluence/shared"
	"github.com/google/uuid"
)

// Status represents the status of a position.
type Status int

const (
	Active Status = iota
	StoppedOut
	Closed
)

// String stringifies the provided position status.
func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case StoppedOut:
		return "stopped out"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Position represents a market position opened from a sized entry.
type Position struct {
	ID           string
	Market       string
	Timeframe    shared.Timeframe
	Direction    shared.Direction
	Quantity     float64
	EntryPrice   float64
	ExitPrice    float64
	Stops        *risk.StopLevels
	PNL          float64
	PNLPercent   float64
	EntryReasons string
	ExitReasons  string
	Status       Status
	CreatedOn    time.Time
	ClosedOn     time.Time
}

// stringifyReasons stringifies the collection of reasons provided.
func stringifyReasons(reasons []shared.Reason) string {
	buf := bytes.NewBuffer([]byte{})
	for idx := range reasons {
		buf.WriteString(reasons[idx].String())
		if idx < len(reasons)-1 {
			buf.WriteString(",")
		}
	}

	return buf.String()
}

// NewPosition initializes a new position from the provided sized entry.
func NewPosition(entry *risk.SizedEntry) (*Position, error) {
	if entry == nil {
		return nil, fmt.Errorf("sized entry cannot be nil")
	}
	if entry.Sizing == nil || entry.Sizing.Quantity <= 0 {
		return nil, fmt.Errorf("sized entry has no tradable quantity")
	}
	if entry.Stops == nil {
		return nil, fmt.Errorf("sized entry has no stop levels")
	}

	pos := &Position{
		ID:           uuid.New().String(),
		Market:       entry.Signal.Market,
		Timeframe:    entry.Signal.Timeframe,
		Direction:    entry.Signal.Direction,
		Quantity:     entry.Sizing.Quantity,
		EntryPrice:   entry.Signal.Entry,
		Stops:        entry.Stops,
		EntryReasons: stringifyReasons(entry.Signal.Reasons),
		Status:       Active,
		CreatedOn:    entry.CreatedOn,
	}

	return pos, nil
}

// UpdatePNL updates the position pnl for the provided current price.
func (p *Position) UpdatePNL(currentPrice float64) (float64, error) {
	switch p.Direction {
	case shared.Long:
		p.PNL = (currentPrice - p.EntryPrice) * p.Quantity
		p.PNLPercent = ((currentPrice - p.EntryPrice) / p.EntryPrice) * 100
	case shared.Short:
		p.PNL = (p.EntryPrice - currentPrice) * p.Quantity
		p.PNLPercent = ((p.EntryPrice - currentPrice) / p.EntryPrice) * 100
	default:
		return 0, fmt.Errorf("unknown direction for position: %s", p.Direction.String())
	}

	return p.PNL, nil
}

// Close closes the position at the provided exit price.
func (p *Position) Close(exitPrice float64, reasons []shared.Reason, now time.Time) (Status, error) {
	_, err := p.UpdatePNL(exitPrice)
	if err != nil {
		return p.Status, err
	}

	p.ExitPrice = exitPrice
	p.ExitReasons = stringifyReasons(reasons)
	p.ClosedOn = now

	switch {
	case slices.Contains(reasons, shared.StopBreached):
		p.Status = StoppedOut
	default:
		p.Status = Closed
	}

	return p.Status, nil
}

// State returns the view of the position consumed by closure checks.
func (p *Position) State(currentPrice float64) risk.PositionState {
	return risk.PositionState{
		Market:       p.Market,
		Direction:    p.Direction,
		EntryPrice:   p.EntryPrice,
		CurrentPrice: currentPrice,
		Quantity:     p.Quantity,
		Stops:        p.Stops,
		CreatedOn:    p.CreatedOn,
	}
}
