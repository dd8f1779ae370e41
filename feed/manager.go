package feed

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dnldd/confluence/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// minSubscriberBuffer is the minimum buffer size for subscribers.
	minSubscriberBuffer = 24
)

// ManagerConfig represents the feed manager configuration.
type ManagerConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Manager fans closed candles out to all feed subscribers. Live feeds and
// the historic data replay both publish through it.
type Manager struct {
	cfg            *ManagerConfig
	updateSignals  chan shared.Candlestick
	subscribers    []*chan shared.Candlestick
	subscribersMtx sync.RWMutex
}

// NewManager initializes a new feed manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if len(cfg.Markets) == 0 {
		return nil, fmt.Errorf("no markets provided for feed manager")
	}

	return &Manager{
		cfg:           cfg,
		updateSignals: make(chan shared.Candlestick, bufferSize),
		subscribers:   make([]*chan shared.Candlestick, 0, minSubscriberBuffer),
	}, nil
}

// Subscribe registers the provided subscriber for market updates.
func (m *Manager) Subscribe(sub *chan shared.Candlestick) {
	m.subscribersMtx.Lock()
	m.subscribers = append(m.subscribers, sub)
	m.subscribersMtx.Unlock()
}

// NotifySubscribers notifies subscribers of the new market update.
func (m *Manager) NotifySubscribers(candle shared.Candlestick) error {
	if !slices.Contains(m.cfg.Markets, candle.Market) {
		return fmt.Errorf("no tracked market found with name %s", candle.Market)
	}

	m.subscribersMtx.RLock()
	defer m.subscribersMtx.RUnlock()

	for k := range m.subscribers {
		*m.subscribers[k] <- candle
	}

	return nil
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

// Run manages the lifecycle processes of the feed manager.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case candle := <-m.updateSignals:
			err := m.NotifySubscribers(candle)
			if err != nil {
				m.cfg.Logger.Error().Err(err).Send()
			}
		case <-ctx.Done():
			return
		}
	}
}
