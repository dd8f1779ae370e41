package database

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/confluence/position"
	"github.com/dnldd/confluence/risk"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createPositionTableSQL    = "CREATE TABLE IF NOT EXISTS position (id TEXT PRIMARY KEY, market TEXT, timeframe TEXT, direction INTEGER, status INTEGER, quantity REAL, entryprice REAL, exitprice REAL, pnl REAL, pnlpercent REAL, entryreasons TEXT, exitreasons TEXT, createdon INTEGER, closedon INTEGER)"
	createPerformanceTableSQL = "CREATE TABLE IF NOT EXISTS performance (market TEXT PRIMARY KEY, trades INTEGER, wins INTEGER, losses INTEGER, winpnl REAL, losspnl REAL, totalpnl REAL, updatedon INTEGER)"
	persistClosedPositionSQL  = "INSERT INTO position(id, market, timeframe, direction, status, quantity, entryprice, exitprice, pnl, pnlpercent, entryreasons, exitreasons, createdon, closedon) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)"
	findPerformanceSQL        = "SELECT * FROM performance WHERE market = ?"
	updatePerformanceSQL      = "UPDATE performance SET trades = trades + 1, wins = wins + ?, losses = losses + ?, winpnl = winpnl + ?, losspnl = losspnl + ?, totalpnl = totalpnl + ?, updatedon = ? WHERE market = ?"
	persistPerformanceSQL     = "INSERT INTO performance(market, trades, wins, losses, winpnl, losspnl, totalpnl, updatedon) VALUES(?,?,?,?,?,?,?,?)"
)

// PositionStorer defines the requirements for storing positions.
type PositionStorer interface {
	// PersistClosedPosition stores the provided closed position to the database.
	PersistClosedPosition(ctx context.Context, position *position.Position) error
}

// PerformanceStorer defines the requirements for tracking trade performance.
type PerformanceStorer interface {
	// UpdatePerformance applies the provided trade outcome to the performance
	// history of its market.
	UpdatePerformance(ctx context.Context, outcome *risk.TradeOutcome) error
	// FetchPerformance fetches the performance history for the provided market.
	FetchPerformance(ctx context.Context, market string) (*risk.Performance, error)
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the storer interfaces.
var _ PositionStorer = (*Database)(nil)
var _ PerformanceStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database schema.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createPositionTableSQL},
		{SQL: createPerformanceTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// PersistClosedPosition stores the provided closed position to the database.
func (db *Database) PersistClosedPosition(ctx context.Context, pos *position.Position) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistClosedPositionSQL,
			PositionalParams: []any{pos.ID, pos.Market, pos.Timeframe.String(), pos.Direction,
				pos.Status, pos.Quantity, pos.EntryPrice, pos.ExitPrice, pos.PNL, pos.PNLPercent,
				pos.EntryReasons, pos.ExitReasons, pos.CreatedOn.Unix(), pos.ClosedOn.Unix()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		db.cfg.Logger.Debug().Msgf("persisting closed position: %s", spew.Sdump(pos))
		return fmt.Errorf("persisting closed position %s: %d -> %s", pos.ID, idx, errStr)
	}

	return nil
}

// UpdatePerformance applies the provided trade outcome to the performance
// history of its market.
func (db *Database) UpdatePerformance(ctx context.Context, outcome *risk.TradeOutcome) error {
	var wins, losses int
	var winPnL, lossPnL float64

	switch {
	case outcome.PnL > 0:
		wins++
		winPnL = outcome.PnL
	default:
		losses++
		lossPnL = -outcome.PnL
	}

	resp, err := db.client.QuerySingle(ctx, findPerformanceSQL, outcome.Market)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	exists := len(resp.GetQueryResultsAssoc()) > 0 &&
		len(resp.GetQueryResultsAssoc()[0].Rows) > 0
	switch {
	case exists:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              updatePerformanceSQL,
				PositionalParams: []any{wins, losses, winPnL, lossPnL, outcome.PnL, now, outcome.Market},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("updating performance for %s: %d -> %s", outcome.Market, idx, errStr)
		}
	default:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              persistPerformanceSQL,
				PositionalParams: []any{outcome.Market, 1, wins, losses, winPnL, lossPnL, outcome.PnL, now},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("persisting performance for %s: %d -> %s", outcome.Market, idx, errStr)
		}
	}

	return nil
}

// rowFloat extracts the named numeric column from the provided row.
func rowFloat(row map[string]any, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// derivePerformance derives the performance metrics consumed by position
// sizing from the provided stored totals.
func derivePerformance(market string, row map[string]any) *risk.Performance {
	trades := rowFloat(row, "trades")
	wins := rowFloat(row, "wins")
	losses := rowFloat(row, "losses")
	winPnL := rowFloat(row, "winpnl")
	lossPnL := rowFloat(row, "losspnl")

	perf := &risk.Performance{
		Market:   market,
		Trades:   uint32(trades),
		TotalPnL: rowFloat(row, "totalpnl"),
	}

	if trades > 0 {
		perf.WinRate = wins / trades
	}
	if wins > 0 {
		perf.AvgWin = winPnL / wins
	}
	if losses > 0 {
		perf.AvgLoss = lossPnL / losses
	}
	if perf.AvgLoss > 0 {
		perf.WinLossRatio = perf.AvgWin / perf.AvgLoss
	}

	return perf
}

// FetchPerformance fetches the performance history for the provided market.
// A market with no closed trades yet resolves to an empty history.
func (db *Database) FetchPerformance(ctx context.Context, market string) (*risk.Performance, error) {
	resp, err := db.client.QuerySingle(ctx, findPerformanceSQL, market)
	if err != nil {
		return nil, err
	}

	results := resp.GetQueryResultsAssoc()
	if len(results) == 0 || len(results[0].Rows) == 0 {
		return &risk.Performance{Market: market}, nil
	}

	return derivePerformance(market, results[0].Rows[0]), nil
}
