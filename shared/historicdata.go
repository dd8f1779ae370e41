package shared

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// HistoricDataConfig represents the historic data source configuration.
type HistoricDataConfig struct {
	// Market is the market covered by the historic data.
	Market string
	// FilePath is the filepath to the historic market data.
	FilePath string
	// NotifySubscribers relays the provided candle to all feed subscribers.
	NotifySubscribers func(candle Candlestick) error
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// HistoricData represents a historic market data source used for backtests.
type HistoricData struct {
	cfg        *HistoricDataConfig
	market     string
	location   *time.Location
	candles    []Candlestick
	candlesMtx sync.RWMutex
	timeframes []string
	startTime  time.Time
	endTime    time.Time
}

// loadHistoricData loads the historic data bytes from the provided file path.
func loadHistoricData(filepath string) (*gjson.Result, error) {
	readb, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading historic data from file with path '%s': %v", filepath, err)
	}

	b := gjson.ParseBytes(readb)

	return &b, nil
}

// ParseCandlesticks parses candlesticks from the provided gjson results.
func ParseCandlesticks(data []gjson.Result, market string, timeframe Timeframe, loc *time.Location) ([]Candlestick, error) {
	candles := make([]Candlestick, 0, len(data))
	for idx := range data {
		entry := data[idx]

		date, err := time.ParseInLocation(DateLayout, entry.Get("date").String(), loc)
		if err != nil {
			return nil, fmt.Errorf("parsing candle date: %v", err)
		}

		candle := Candlestick{
			Market:    market,
			Timeframe: timeframe,
			Date:      date,
			Open:      entry.Get("open").Float(),
			High:      entry.Get("high").Float(),
			Low:       entry.Get("low").Float(),
			Close:     entry.Get("close").Float(),
			Volume:    entry.Get("volume").Float(),
		}

		err = candle.Validate()
		if err != nil {
			return nil, fmt.Errorf("validating candle: %v", err)
		}

		candles = append(candles, candle)
	}

	return candles, nil
}

// NewHistoricData initializes a new historic data source.
func NewHistoricData(cfg *HistoricDataConfig) (*HistoricData, error) {
	b, err := loadHistoricData(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("loading historic data: %v", err)
	}

	market := b.Get("market").String()
	if market == "" {
		market = cfg.Market
	}

	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return nil, fmt.Errorf("loading new york location: %v", err)
	}

	historicData := HistoricData{
		market:   market,
		cfg:      cfg,
		location: loc,
	}

	timeframes := []Timeframe{OneHour, FiveMinute}
	for idx := range timeframes {
		timeframe := timeframes[idx]

		data := b.Get(timeframe.String()).Array()
		if len(data) == 0 {
			continue
		}

		candles, err := ParseCandlesticks(data, market, timeframe, loc)
		if err != nil {
			return nil, fmt.Errorf("parsing candlesticks: %v", err)
		}

		historicData.timeframes = append(historicData.timeframes, timeframe.String())
		historicData.candles = append(historicData.candles, candles...)
	}

	if len(historicData.candles) == 0 {
		return nil, fmt.Errorf("no candles found in historic data file '%s'", cfg.FilePath)
	}

	// Sort the multi timeframe data by timestamp. At equal timestamps the
	// trend timeframe candle goes first so an entry evaluation triggered by
	// the entry candle sees the fresh trend window.
	slices.SortFunc(historicData.candles, func(a, b Candlestick) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		default:
			switch {
			case a.Timeframe == OneHour && b.Timeframe == FiveMinute:
				return -1
			case a.Timeframe == FiveMinute && b.Timeframe == OneHour:
				return 1
			default:
				return 0
			}
		}
	})

	historicData.startTime = historicData.candles[0].Date
	historicData.endTime = historicData.candles[len(historicData.candles)-1].Date

	return &historicData, nil
}

// ProcessHistoricalData streams historic data for a market through the feed.
func (h *HistoricData) ProcessHistoricalData() error {
	h.candlesMtx.RLock()
	defer h.candlesMtx.RUnlock()

	first := h.candles[0].Date
	last := h.candles[len(h.candles)-1].Date
	timeDiffInHours := last.Sub(first).Hours()

	tfs := strings.Join(h.timeframes, ",")
	h.cfg.Logger.Info().Msgf("processing historical [%s] data covering %.2f hours, from %s, to %s",
		tfs, timeDiffInHours, first.Format(time.RFC1123), last.Format(time.RFC1123))

	for idx := range h.candles {
		// Process historical data synchronously.
		err := h.cfg.NotifySubscribers(h.candles[idx])
		if err != nil {
			return fmt.Errorf("processing historical data: %v", err)
		}
	}

	return nil
}

// FetchStartTime returns the start time of the loaded historic data.
func (h *HistoricData) FetchStartTime() time.Time {
	return h.startTime
}

// FetchEndTime returns the end time of the loaded historic data.
func (h *HistoricData) FetchEndTime() time.Time {
	return h.endTime
}

// FetchMarket returns the backtest market.
func (h *HistoricData) FetchMarket() string {
	return h.market
}
