package market

import (
	"fmt"
	"time"

	"github.com/dnldd/confluence/indicator"
	"github.com/dnldd/confluence/shared"
)

// MarketConfig represents the configuration of a tracked market.
type MarketConfig struct {
	// Market is the name of the tracked market.
	Market string
	// TrendTimeframe and EntryTimeframe are the tracked timeframes.
	TrendTimeframe shared.Timeframe
	EntryTimeframe shared.Timeframe
	// SnapshotSize is the candle capacity per timeframe.
	SnapshotSize int32
	// ATRPeriod is the atr period backing market condition snapshots.
	ATRPeriod int
	// VolumeLookback is the trailing bar count for average volume.
	VolumeLookback int32
}

// Market tracks the candle history and session context of a market.
type Market struct {
	cfg       *MarketConfig
	snapshots map[shared.Timeframe]*shared.CandlestickSnapshot
	loc       *time.Location

	session     string
	sessionHigh float64
	sessionLow  float64
}

// NewMarket initializes a new market.
func NewMarket(cfg *MarketConfig) (*Market, error) {
	if cfg.Market == "" {
		return nil, fmt.Errorf("market name cannot be empty")
	}
	if cfg.ATRPeriod <= 0 {
		return nil, fmt.Errorf("atr period must be positive")
	}
	if cfg.VolumeLookback <= 0 {
		return nil, fmt.Errorf("volume lookback must be positive")
	}

	loc, err := time.LoadLocation(shared.NewYorkLocation)
	if err != nil {
		return nil, fmt.Errorf("loading new york location: %w", err)
	}

	snapshots := make(map[shared.Timeframe]*shared.CandlestickSnapshot, 2)
	for _, timeframe := range []shared.Timeframe{cfg.TrendTimeframe, cfg.EntryTimeframe} {
		snapshot, err := shared.NewCandlestickSnapshot(cfg.SnapshotSize)
		if err != nil {
			return nil, fmt.Errorf("creating %s snapshot: %w", timeframe.String(), err)
		}
		snapshots[timeframe] = snapshot
	}

	return &Market{
		cfg:       cfg,
		snapshots: snapshots,
		loc:       loc,
	}, nil
}

// trackSession updates the session high and low for the provided candle,
// resetting both on session rollover.
func (m *Market) trackSession(candle *shared.Candlestick) {
	session, err := shared.CurrentSession(candle.Date.In(m.loc))
	if err != nil {
		return
	}

	if session != m.session {
		m.session = session
		m.sessionHigh = candle.High
		m.sessionLow = candle.Low
		return
	}

	if candle.High > m.sessionHigh {
		m.sessionHigh = candle.High
	}
	if m.sessionLow == 0 || candle.Low < m.sessionLow {
		m.sessionLow = candle.Low
	}
}

// Update applies the provided closed candle to the market.
func (m *Market) Update(candle *shared.Candlestick) error {
	if candle.Market != m.cfg.Market {
		return fmt.Errorf("%w: candle market %s does not match %s",
			shared.ErrInvalidParameter, candle.Market, m.cfg.Market)
	}

	err := candle.Validate()
	if err != nil {
		return fmt.Errorf("validating candle: %w", err)
	}

	snapshot, ok := m.snapshots[candle.Timeframe]
	if !ok {
		return fmt.Errorf("%w: untracked timeframe %s",
			shared.ErrInvalidParameter, candle.Timeframe.String())
	}

	snapshot.Update(candle)
	if candle.Timeframe == m.cfg.EntryTimeframe {
		m.trackSession(candle)
	}

	return nil
}

// FetchCandles returns the last n candles for the provided timeframe.
func (m *Market) FetchCandles(timeframe shared.Timeframe, n int32) ([]*shared.Candlestick, error) {
	snapshot, ok := m.snapshots[timeframe]
	if !ok {
		return nil, fmt.Errorf("%w: untracked timeframe %s",
			shared.ErrInvalidParameter, timeframe.String())
	}

	return snapshot.LastN(n), nil
}

// FetchAverageVolume returns the trailing average volume for the provided
// timeframe, excluding the in-progress latest candle.
func (m *Market) FetchAverageVolume(timeframe shared.Timeframe) (float64, error) {
	snapshot, ok := m.snapshots[timeframe]
	if !ok {
		return 0, fmt.Errorf("%w: untracked timeframe %s",
			shared.ErrInvalidParameter, timeframe.String())
	}

	return snapshot.AverageVolumeN(m.cfg.VolumeLookback), nil
}

// FetchSessionRange returns the current session name with its tracked high
// and low.
func (m *Market) FetchSessionRange() (string, float64, float64) {
	return m.session, m.sessionHigh, m.sessionLow
}

// FetchConditions derives the current market conditions snapshot from the
// entry timeframe candle history.
func (m *Market) FetchConditions() (*shared.MarketConditions, error) {
	snapshot := m.snapshots[m.cfg.EntryTimeframe]
	last := snapshot.Last()
	if last == nil {
		return nil, fmt.Errorf("%s: %w: no entry timeframe candles",
			m.cfg.Market, shared.ErrInsufficientData)
	}

	conditions := &shared.MarketConditions{
		Market:       m.cfg.Market,
		Volatility:   shared.NormalVolatility,
		CurrentPrice: last.Close,
		CreatedOn:    last.Date,
	}

	candles := snapshot.LastN(snapshot.Count())
	atrHistory, err := indicator.ATRSeries(candles, m.cfg.ATRPeriod)
	if err == nil {
		conditions.ATR = atrHistory[len(atrHistory)-1].Value
		conditions.Volatility = indicator.ClassifyVolatility(atrHistory[:len(atrHistory)-1], conditions.ATR)
	}

	conditions.AverageVolume = snapshot.AverageVolumeN(m.cfg.VolumeLookback)

	// Participation relative to the trailing average grades liquidity,
	// bounded in [0, 1] with 0.5 at average volume.
	if conditions.AverageVolume > 0 {
		conditions.LiquidityScore = last.Volume / (last.Volume + conditions.AverageVolume)
	}

	// The latest bar range approximates the effective spread.
	if last.Close > 0 {
		conditions.SpreadPercent = (last.High - last.Low) / last.Close / 10
	}

	return conditions, nil
}
