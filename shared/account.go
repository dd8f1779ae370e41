package shared

import "time"

// AccountState represents the risk ledger for an account. It is mutated only
// by the risk manager's run loop; consumers receive value snapshots.
type AccountState struct {
	// TotalEquity is the account equity including unrealized pnl.
	TotalEquity float64
	// AvailableEquity is the equity not committed to open positions.
	AvailableEquity float64
	// PeakEquity is the highest observed equity, the drawdown anchor.
	PeakEquity float64
	// OpenPositions is the current open position count.
	OpenPositions uint32
	// TotalExposurePercent is open notional over total equity.
	TotalExposurePercent float64
	// CurrentDrawdown is the fractional decline from peak equity.
	CurrentDrawdown float64
	// MaxDrawdown is the largest drawdown observed for the account.
	MaxDrawdown float64
	// DailyPnL is the realized pnl since the last daily reset.
	DailyPnL float64
	// DailyTrades counts fills since the last daily reset.
	DailyTrades uint32
	// LastTradeTime is the time of the most recent fill.
	LastTradeTime time.Time
}
