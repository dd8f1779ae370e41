package feed

import (
	"context"
	"testing"
	"time"

	"github.com/dnldd/confluence/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

func testCandle(market string) shared.Candlestick {
	return shared.Candlestick{
		Market:    market,
		Timeframe: shared.FiveMinute,
		Open:      100,
		Close:     101,
		High:      102,
		Low:       99,
		Volume:    500,
		Date:      time.Date(2024, 5, 20, 14, 0, 0, 0, time.UTC),
	}
}

func TestNewManager(t *testing.T) {
	_, err := NewManager(&ManagerConfig{Logger: zerolog.Nop()})
	assert.Error(t, err)

	mgr, err := NewManager(&ManagerConfig{Markets: []string{"^GSPC"}, Logger: zerolog.Nop()})
	assert.NoError(t, err)
	assert.NotNil(t, mgr)
}

func TestNotifySubscribers(t *testing.T) {
	mgr, err := NewManager(&ManagerConfig{Markets: []string{"^GSPC"}, Logger: zerolog.Nop()})
	assert.NoError(t, err)

	first := make(chan shared.Candlestick, 4)
	second := make(chan shared.Candlestick, 4)
	mgr.Subscribe(&first)
	mgr.Subscribe(&second)

	// Ensure an update for an unknown market errors.
	err = mgr.NotifySubscribers(testCandle("^AAPL"))
	assert.Error(t, err)
	assert.Equal(t, 0, len(first))

	// Ensure all subscribers receive a tracked market update.
	err = mgr.NotifySubscribers(testCandle("^GSPC"))
	assert.NoError(t, err)

	candle := <-first
	assert.Equal(t, "^GSPC", candle.Market)
	candle = <-second
	assert.Equal(t, "^GSPC", candle.Market)
}

func TestManagerRun(t *testing.T) {
	mgr, err := NewManager(&ManagerConfig{Markets: []string{"^GSPC"}, Logger: zerolog.Nop()})
	assert.NoError(t, err)

	sub := make(chan shared.Candlestick, 4)
	mgr.Subscribe(&sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(done)
	}()

	mgr.SendMarketUpdate(testCandle("^GSPC"))
	select {
	case candle := <-sub:
		assert.Equal(t, "^GSPC", candle.Market)
	case <-time.After(time.Second * 2):
		t.Fatal("timed out awaiting subscriber update")
	}

	cancel()
	<-done
}
