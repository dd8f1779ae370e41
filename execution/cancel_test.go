package execution

import (
	"testing"
	"time"

	"github.com/dnldd/confluence/shared"
	"github.com/peterldowns/testy/assert"
)

func TestShouldCancelOrderHoldsSteadyConditions(t *testing.T) {
	advisor := newTestAdvisor(t)
	order := testOrder(100)
	now := order.CreatedOn.Add(time.Minute)

	advice := advisor.ShouldCancelOrder(order, normalConditions(), normalConditions(), now)
	assert.False(t, advice.Cancel)
	assert.Equal(t, shared.NormalUrgency, advice.Urgency)
	assert.Equal(t, 0, len(advice.Reasons))
}

func TestShouldCancelOrderVolatilitySpike(t *testing.T) {
	advisor := newTestAdvisor(t)
	order := testOrder(100)
	now := order.CreatedOn.Add(time.Minute)

	current := normalConditions()
	current.ATR = 5
	advice := advisor.ShouldCancelOrder(order, current, normalConditions(), now)
	assert.True(t, advice.Cancel)
	assert.Equal(t, shared.HighUrgency, advice.Urgency)
	assert.Equal(t, 1, len(advice.Reasons))
}

func TestShouldCancelOrderLiquidityCollapse(t *testing.T) {
	advisor := newTestAdvisor(t)
	order := testOrder(100)
	now := order.CreatedOn.Add(time.Minute)

	current := normalConditions()
	current.LiquidityScore = 0.05
	advice := advisor.ShouldCancelOrder(order, current, normalConditions(), now)
	assert.True(t, advice.Cancel)
	assert.Equal(t, shared.HighUrgency, advice.Urgency)
}

func TestShouldCancelOrderAgeTimeout(t *testing.T) {
	advisor := newTestAdvisor(t)
	order := testOrder(100)
	now := order.CreatedOn.Add(time.Minute * 10)

	advice := advisor.ShouldCancelOrder(order, normalConditions(), normalConditions(), now)
	assert.True(t, advice.Cancel)
	assert.Equal(t, shared.NormalUrgency, advice.Urgency)
}

func TestShouldCancelOrderSpreadWideningRaisesUrgencyOnly(t *testing.T) {
	advisor := newTestAdvisor(t)
	order := testOrder(100)
	now := order.CreatedOn.Add(time.Minute)

	current := normalConditions()
	current.SpreadPercent = normalConditions().SpreadPercent * 3
	advice := advisor.ShouldCancelOrder(order, current, normalConditions(), now)
	assert.False(t, advice.Cancel)
	assert.Equal(t, shared.HighUrgency, advice.Urgency)
	assert.Equal(t, 1, len(advice.Reasons))
}
