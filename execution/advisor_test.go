package execution

import (
	"testing"
	"time"

	"github.com/dnldd/confluence/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

func newTestAdvisor(t *testing.T) *Advisor {
	cfg := DefaultAdvisorConfig()
	cfg.Logger = zerolog.Nop()
	advisor, err := NewAdvisor(&cfg)
	assert.NoError(t, err)
	return advisor
}

func normalConditions() *shared.MarketConditions {
	// A weekday during the new york session.
	created := time.Date(2024, 5, 20, 14, 0, 0, 0, time.UTC)
	return &shared.MarketConditions{
		Market:         "^GSPC",
		Volatility:     shared.NormalVolatility,
		ATR:            2,
		LiquidityScore: 0.6,
		SpreadPercent:  0.0002,
		AverageVolume:  100000,
		CurrentPrice:   100,
		CreatedOn:      created,
	}
}

func testOrder(quantity float64) *Order {
	created := time.Date(2024, 5, 20, 14, 0, 0, 0, time.UTC)
	order := NewOrder("^GSPC", shared.Long, LimitOrder, quantity, 100, created)
	return &order
}

func TestAdvisorConfigValidate(t *testing.T) {
	cfg := DefaultAdvisorConfig()
	assert.NoError(t, cfg.Validate())

	cfg.BaseSlippagePercent = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultAdvisorConfig()
	cfg.MaxSlippagePercent = cfg.BaseSlippagePercent / 2
	assert.Error(t, cfg.Validate())

	cfg = DefaultAdvisorConfig()
	cfg.VolatilitySpikeRatio = 1
	assert.Error(t, cfg.Validate())
}

func TestRecommendOrderType(t *testing.T) {
	advisor := newTestAdvisor(t)
	created := time.Date(2024, 5, 20, 14, 0, 0, 0, time.UTC)
	signal := shared.NewTradingSignal("^GSPC", shared.FiveMinute, shared.Long, 100, 98, 97,
		[3]float64{102, 104, 106}, 0.8, nil, shared.Evidence{}, created)

	// Emergency and high urgency always recommend market orders.
	rec := advisor.RecommendOrderType(&signal, normalConditions(), shared.EmergencyUrgency)
	assert.Equal(t, MarketOrder, rec.Type)
	assert.True(t, rec.Confidence > 0.9)
	assert.True(t, len(rec.Alternatives) >= 1)

	rec = advisor.RecommendOrderType(&signal, normalConditions(), shared.HighUrgency)
	assert.Equal(t, MarketOrder, rec.Type)

	// High volatility recommends market orders even at normal urgency.
	conditions := normalConditions()
	conditions.Volatility = shared.HighVolatility
	rec = advisor.RecommendOrderType(&signal, conditions, shared.NormalUrgency)
	assert.Equal(t, MarketOrder, rec.Type)
	assert.True(t, len(rec.Alternatives) >= 1)

	// Thin liquidity recommends a limit at the signal entry.
	conditions = normalConditions()
	conditions.LiquidityScore = 0.2
	rec = advisor.RecommendOrderType(&signal, conditions, shared.NormalUrgency)
	assert.Equal(t, LimitOrder, rec.Type)
	assert.Equal(t, signal.Entry, rec.LimitPrice)

	// Normal conditions recommend a limit at the signal entry.
	rec = advisor.RecommendOrderType(&signal, normalConditions(), shared.NormalUrgency)
	assert.Equal(t, LimitOrder, rec.Type)
	assert.Equal(t, signal.Entry, rec.LimitPrice)
	assert.True(t, len(rec.Alternatives) >= 1)
	assert.NotEqual(t, "", rec.Rationale)
}
