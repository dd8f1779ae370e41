package position

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/dnldd/confluence/risk"
	"github.com/dnldd/confluence/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// dbTimeout bounds database calls made from the run loop.
	dbTimeout = time.Second * 8
	// positionsCSVFile is the backtest positions dump file.
	positionsCSVFile = "positions.csv"
)

// ManagerConfig represents the position manager configuration.
type ManagerConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// RequestRevalidation relays the provided fill-time revalidation request
	// for processing.
	RequestRevalidation func(request risk.RevalidateRequest)
	// RequestClosureDecision relays the provided closure request for processing.
	RequestClosureDecision func(request risk.ClosureRequest)
	// SendFill relays the provided fill for processing.
	SendFill func(fill risk.Fill)
	// SendTradeOutcome relays the provided trade outcome for processing.
	SendTradeOutcome func(outcome risk.TradeOutcome)
	// PersistClosedPosition persists the provided closed position to the database.
	PersistClosedPosition func(ctx context.Context, position *Position) error
	// Params are the risk engine parameters used for trailing stop updates.
	Params *risk.Params
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *ManagerConfig) Validate() error {
	if len(cfg.Markets) == 0 {
		return fmt.Errorf("no markets provided for position manager")
	}
	if cfg.RequestRevalidation == nil {
		return fmt.Errorf("revalidation request function cannot be nil")
	}
	if cfg.RequestClosureDecision == nil {
		return fmt.Errorf("closure request function cannot be nil")
	}
	if cfg.SendFill == nil {
		return fmt.Errorf("fill send function cannot be nil")
	}
	if cfg.SendTradeOutcome == nil {
		return fmt.Errorf("trade outcome send function cannot be nil")
	}
	if cfg.Params == nil {
		return fmt.Errorf("risk params cannot be nil")
	}

	return nil
}

// Manager manages positions through their lifecycles. Positions are mutated
// only inside the run loop.
type Manager struct {
	cfg       *ManagerConfig
	positions map[string][]*Position
	closed    []*Position

	entries       chan risk.SizedEntry
	updateSignals chan shared.Candlestick
	exitSignals   chan shared.ExitSignal
}

// NewManager initializes a new position manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	positions := make(map[string][]*Position)
	for idx := range cfg.Markets {
		positions[cfg.Markets[idx]] = []*Position{}
	}

	return &Manager{
		cfg:           cfg,
		positions:     positions,
		entries:       make(chan risk.SizedEntry, bufferSize),
		updateSignals: make(chan shared.Candlestick, bufferSize),
		exitSignals:   make(chan shared.ExitSignal, bufferSize),
	}, nil
}

// SendSizedEntry relays the provided sized entry for processing.
func (m *Manager) SendSizedEntry(entry risk.SizedEntry) {
	select {
	case m.entries <- entry:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("sized entry channel at capacity: %d/%d",
			len(m.entries), bufferSize)
	}
}

// SendMarketUpdate relays the provided market update for processing.
func (m *Manager) SendMarketUpdate(candle shared.Candlestick) {
	select {
	case m.updateSignals <- candle:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("market update channel at capacity: %d/%d",
			len(m.updateSignals), bufferSize)
	}
}

// SendExitSignal relays the provided exit signal for processing.
func (m *Manager) SendExitSignal(signal shared.ExitSignal) {
	select {
	case m.exitSignals <- signal:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("exit signal channel at capacity: %d/%d",
			len(m.exitSignals), bufferSize)
	}
}

// handleSizedEntry opens a position from the provided sized entry. The entry
// is revalidated against the current account state before the fill; an
// unanswerable revalidation fails closed.
func (m *Manager) handleSizedEntry(entry risk.SizedEntry) error {
	_, ok := m.positions[entry.Signal.Market]
	if !ok {
		return fmt.Errorf("no tracked market found with name %s", entry.Signal.Market)
	}

	revalidation := risk.NewRevalidateRequest(entry.Signal)
	m.cfg.RequestRevalidation(revalidation)

	select {
	case ok := <-revalidation.Response:
		if !ok {
			m.cfg.Logger.Info().Str("market", entry.Signal.Market).
				Str("signal", entry.Signal.ID).Msg("fill-time revalidation rejected entry")
			return nil
		}
	case <-time.After(shared.TimeoutDuration):
		return fmt.Errorf("%s: timed out awaiting fill-time revalidation", entry.Signal.Market)
	}

	pos, err := NewPosition(&entry)
	if err != nil {
		return fmt.Errorf("creating new position: %w", err)
	}

	m.positions[pos.Market] = append(m.positions[pos.Market], pos)
	m.cfg.SendFill(risk.NewFill(pos.Market, pos.Direction, pos.Quantity, pos.EntryPrice,
		pos.CreatedOn))

	m.cfg.Logger.Info().Str("market", pos.Market).Str("position", pos.ID).
		Str("direction", pos.Direction.String()).Float64("entry", pos.EntryPrice).
		Float64("quantity", pos.Quantity).Float64("stop", pos.Stops.Initial).
		Msg("opened position")

	return nil
}

// closePosition closes the provided position fully, persists it and feeds the
// outcome back to the risk account.
func (m *Manager) closePosition(pos *Position, exitPrice float64, reasons []shared.Reason, now time.Time) error {
	_, err := pos.Close(exitPrice, reasons, now)
	if err != nil {
		return fmt.Errorf("closing position %s: %w", pos.ID, err)
	}

	var reason shared.Reason
	if len(reasons) > 0 {
		reason = reasons[0]
	}

	m.cfg.SendTradeOutcome(risk.NewTradeOutcome(pos.Market, pos.Direction, pos.Quantity,
		pos.EntryPrice, pos.ExitPrice, pos.PNL, reason, now))

	m.closed = append(m.closed, pos)

	if m.cfg.PersistClosedPosition != nil {
		ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		err = m.cfg.PersistClosedPosition(ctx, pos)
		cancel()
		if err != nil {
			m.cfg.Logger.Error().Err(err).Msgf("persisting closed position %s", pos.ID)
		}
	}

	m.cfg.Logger.Info().Str("market", pos.Market).Str("position", pos.ID).
		Str("status", pos.Status.String()).Float64("exit", pos.ExitPrice).
		Float64("pnl", pos.PNL).Msg("closed position")

	return nil
}

// partialClosePosition closes the provided fraction of the position and keeps
// the remainder open.
func (m *Manager) partialClosePosition(pos *Position, exitPrice float64, fraction float64,
	reason shared.Reason, now time.Time) {
	quantity := pos.Quantity * fraction

	var pnl float64
	switch pos.Direction {
	case shared.Long:
		pnl = (exitPrice - pos.EntryPrice) * quantity
	case shared.Short:
		pnl = (pos.EntryPrice - exitPrice) * quantity
	}

	outcome := risk.NewTradeOutcome(pos.Market, pos.Direction, quantity, pos.EntryPrice,
		exitPrice, pnl, reason, now)
	outcome.Partial = true
	m.cfg.SendTradeOutcome(outcome)

	pos.Quantity -= quantity

	m.cfg.Logger.Info().Str("market", pos.Market).Str("position", pos.ID).
		Float64("quantity", quantity).Float64("remaining", pos.Quantity).
		Str("reason", reason.String()).Msg("partially closed position")
}

// handleMarketUpdate updates tracked positions for the provided market data
// and evaluates their closure checks.
func (m *Manager) handleMarketUpdate(candle shared.Candlestick) error {
	set, ok := m.positions[candle.Market]
	if !ok {
		return fmt.Errorf("no tracked market found with name %s", candle.Market)
	}

	// Errors accumulate so one failing position cannot stall the pass or
	// leave the compacted tracking slice unassigned.
	var errs error
	remaining := set[:0]
	for _, pos := range set {
		_, err := pos.UpdatePNL(candle.Close)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("updating position pnl: %w", err))
			remaining = append(remaining, pos)
			continue
		}

		pos.Stops.UpdateTrailing(candle.Close, m.cfg.Params)

		request := risk.NewClosureRequest(pos.State(candle.Close))
		m.cfg.RequestClosureDecision(request)

		var decision risk.ClosureDecision
		select {
		case decision = <-request.Response:
			// do nothing.
		case <-time.After(shared.TimeoutDuration):
			// An unanswerable closure check keeps the position open until
			// the next update.
			m.cfg.Logger.Error().Str("position", pos.ID).
				Msg("timed out awaiting closure decision")
			remaining = append(remaining, pos)
			continue
		}

		switch decision.Action {
		case risk.FullClose:
			err = m.closePosition(pos, candle.Close, []shared.Reason{decision.Reason}, candle.Date)
			if err != nil {
				// The position stays tracked until it closes cleanly.
				errs = errors.Join(errs, err)
				remaining = append(remaining, pos)
			}
		case risk.PartialClose:
			m.partialClosePosition(pos, candle.Close, decision.Fraction, decision.Reason, candle.Date)
			remaining = append(remaining, pos)
		default:
			if len(decision.RiskFactors) > 0 {
				m.cfg.Logger.Debug().Str("position", pos.ID).
					Strs("risks", decision.RiskFactors).Msg("elevated position risk")
			}
			remaining = append(remaining, pos)
		}
	}

	m.positions[candle.Market] = remaining

	return errs
}

// handleExitSignal closes tracked positions matching the provided exit signal.
func (m *Manager) handleExitSignal(signal shared.ExitSignal) error {
	defer func() {
		select {
		case signal.Status <- shared.Processed:
			// do nothing.
		default:
			// do nothing.
		}
	}()

	set, ok := m.positions[signal.Market]
	if !ok {
		return fmt.Errorf("no tracked market found with name %s", signal.Market)
	}

	var errs error
	remaining := set[:0]
	for _, pos := range set {
		if pos.Direction != signal.Direction {
			remaining = append(remaining, pos)
			continue
		}

		err := m.closePosition(pos, signal.Price, signal.Reasons, signal.CreatedOn)
		if err != nil {
			// The position stays tracked until it closes cleanly.
			errs = errors.Join(errs, err)
			remaining = append(remaining, pos)
		}
	}

	m.positions[signal.Market] = remaining

	return errs
}

// writePositionsCSV writes the closed positions to the provided writer.
func (m *Manager) writePositionsCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	err := writer.Write([]string{"id", "market", "timeframe", "direction", "status",
		"quantity", "entry", "exit", "pnl", "pnl percent", "entry reasons", "exit reasons",
		"created on", "closed on"})
	if err != nil {
		return fmt.Errorf("writing positions csv header: %w", err)
	}

	for _, pos := range m.closed {
		err = writer.Write([]string{
			pos.ID,
			pos.Market,
			pos.Timeframe.String(),
			pos.Direction.String(),
			pos.Status.String(),
			strconv.FormatFloat(pos.Quantity, 'f', -1, 64),
			strconv.FormatFloat(pos.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(pos.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(pos.PNL, 'f', -1, 64),
			strconv.FormatFloat(pos.PNLPercent, 'f', -1, 64),
			pos.EntryReasons,
			pos.ExitReasons,
			pos.CreatedOn.Format(time.RFC3339),
			pos.ClosedOn.Format(time.RFC3339),
		})
		if err != nil {
			return fmt.Errorf("writing position %s to csv: %w", pos.ID, err)
		}
	}

	writer.Flush()

	return writer.Error()
}

// PersistPositionsCSV dumps the closed positions to the positions csv file.
func (m *Manager) PersistPositionsCSV() error {
	file, err := os.Create(positionsCSVFile)
	if err != nil {
		return fmt.Errorf("creating positions csv: %w", err)
	}
	defer file.Close()

	return m.writePositionsCSV(file)
}

// OpenPositions returns the open positions tracked for the provided market.
func (m *Manager) OpenPositions(market string) []*Position {
	return slices.Clone(m.positions[market])
}

// Run manages the lifecycle processes of the position manager.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case entry := <-m.entries:
			err := m.handleSizedEntry(entry)
			if err != nil {
				m.cfg.Logger.Error().Err(err).Send()
			}
		case candle := <-m.updateSignals:
			err := m.handleMarketUpdate(candle)
			if err != nil {
				m.cfg.Logger.Error().Err(err).Send()
			}
		case signal := <-m.exitSignals:
			err := m.handleExitSignal(signal)
			if err != nil {
				m.cfg.Logger.Error().Err(err).Send()
			}
		case <-ctx.Done():
			return
		}
	}
}
