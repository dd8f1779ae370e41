package position

import (
	"testing"
	"time"

	"github.com/dnldd/confluence/risk"
	"github.com/dnldd/confluence/shared"
	"github.com/peterldowns/testy/assert"
)

func sizedEntry(direction shared.Direction) risk.SizedEntry {
	now := time.Date(2024, 5, 20, 14, 0, 0, 0, time.UTC)

	entry := float64(100)
	stop := float64(98)
	targets := [3]float64{102, 104, 106}
	if direction == shared.Short {
		stop = 102
		targets = [3]float64{98, 96, 94}
	}

	signal := shared.NewTradingSignal("^GSPC", shared.FiveMinute, direction, entry, stop, 0,
		targets, 0.75, []shared.Reason{shared.BandTouch, shared.StrongVolume},
		shared.Evidence{}, now)

	params := risk.DefaultParams()
	stops := risk.CalculateStopLossLevels(&signal, &params)

	return risk.SizedEntry{
		Signal:    signal,
		Sizing:    &risk.Sizing{Quantity: 10, Notional: 1000},
		Stops:     stops,
		CreatedOn: now,
	}
}

func TestNewPosition(t *testing.T) {
	// Ensure a nil entry errors.
	_, err := NewPosition(nil)
	assert.Error(t, err)

	// Ensure an entry with no tradable quantity errors.
	entry := sizedEntry(shared.Long)
	entry.Sizing = &risk.Sizing{}
	_, err = NewPosition(&entry)
	assert.Error(t, err)

	// Ensure an entry with no stop levels errors.
	entry = sizedEntry(shared.Long)
	entry.Stops = nil
	_, err = NewPosition(&entry)
	assert.Error(t, err)

	// Ensure a valid entry creates an active position.
	entry = sizedEntry(shared.Long)
	pos, err := NewPosition(&entry)
	assert.NoError(t, err)
	assert.Equal(t, "^GSPC", pos.Market)
	assert.Equal(t, shared.Long, pos.Direction)
	assert.Equal(t, float64(100), pos.EntryPrice)
	assert.Equal(t, float64(10), pos.Quantity)
	assert.Equal(t, Active, pos.Status)
	assert.NotNil(t, pos.Stops)
	assert.True(t, pos.ID != "")
	assert.Equal(t, "band touch,strong volume", pos.EntryReasons)
}

func TestUpdatePNL(t *testing.T) {
	entry := sizedEntry(shared.Long)
	long, err := NewPosition(&entry)
	assert.NoError(t, err)

	pnl, err := long.UpdatePNL(102)
	assert.NoError(t, err)
	assert.Equal(t, float64(20), pnl)
	assert.Equal(t, float64(2), long.PNLPercent)

	pnl, err = long.UpdatePNL(99)
	assert.NoError(t, err)
	assert.Equal(t, float64(-10), pnl)

	entry = sizedEntry(shared.Short)
	short, err := NewPosition(&entry)
	assert.NoError(t, err)

	pnl, err = short.UpdatePNL(97)
	assert.NoError(t, err)
	assert.Equal(t, float64(30), pnl)
	assert.Equal(t, float64(3), short.PNLPercent)
}

func TestClosePosition(t *testing.T) {
	now := time.Date(2024, 5, 20, 16, 0, 0, 0, time.UTC)

	// Ensure a stop breach close marks the position stopped out.
	entry := sizedEntry(shared.Long)
	pos, err := NewPosition(&entry)
	assert.NoError(t, err)

	status, err := pos.Close(97.5, []shared.Reason{shared.StopBreached}, now)
	assert.NoError(t, err)
	assert.Equal(t, StoppedOut, status)
	assert.Equal(t, float64(97.5), pos.ExitPrice)
	assert.Equal(t, float64(-25), pos.PNL)
	assert.Equal(t, "stop breached", pos.ExitReasons)
	assert.Equal(t, now, pos.ClosedOn)

	// Ensure a profitable close marks the position closed.
	entry = sizedEntry(shared.Long)
	pos, err = NewPosition(&entry)
	assert.NoError(t, err)

	status, err = pos.Close(104, []shared.Reason{shared.TargetHit}, now)
	assert.NoError(t, err)
	assert.Equal(t, Closed, status)
	assert.Equal(t, float64(40), pos.PNL)
}

func TestPositionState(t *testing.T) {
	entry := sizedEntry(shared.Long)
	pos, err := NewPosition(&entry)
	assert.NoError(t, err)

	state := pos.State(101)
	assert.Equal(t, pos.Market, state.Market)
	assert.Equal(t, pos.Direction, state.Direction)
	assert.Equal(t, float64(101), state.CurrentPrice)
	assert.Equal(t, pos.Quantity, state.Quantity)
	assert.Equal(t, pos.Stops, state.Stops)
	assert.Equal(t, pos.CreatedOn, state.CreatedOn)
}

func TestPositionStatusString(t *testing.T) {
	assert.Equal(t, "active", Active.String())
	assert.Equal(t, "stopped out", StoppedOut.String())
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "unknown", Status(99).String())
}
