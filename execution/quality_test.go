package execution

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestAnalyzeExecutionQuality(t *testing.T) {
	advisor := newTestAdvisor(t)
	order := testOrder(100)
	filled := time.Date(2024, 5, 20, 14, 0, 5, 0, time.UTC)

	tests := []struct {
		name      string
		fillPrice float64
		want      QualityGrade
	}{
		{name: "excellent fill", fillPrice: 100.01, want: Excellent},
		{name: "good fill", fillPrice: 100.08, want: Good},
		{name: "acceptable fill", fillPrice: 100.15, want: Acceptable},
		{name: "poor fill", fillPrice: 100.4, want: Poor},
		{name: "unacceptable fill", fillPrice: 101, want: Unacceptable},
		{name: "favourable slippage grades on magnitude", fillPrice: 99.99, want: Excellent},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := &Result{
				FillPrice:    test.fillPrice,
				FillDuration: time.Second * 2,
				FilledOn:     filled,
			}

			report, err := advisor.AnalyzeExecutionQuality(order, result, 100)
			assert.NoError(t, err)
			assert.Equal(t, test.want, report.Grade)
			assert.False(t, report.SlowFill)
		})
	}
}

func TestAnalyzeExecutionQualityFlagsSlowFills(t *testing.T) {
	advisor := newTestAdvisor(t)
	order := testOrder(100)

	result := &Result{
		FillPrice:    100.01,
		FillDuration: time.Minute,
		FilledOn:     time.Date(2024, 5, 20, 14, 1, 0, 0, time.UTC),
	}

	report, err := advisor.AnalyzeExecutionQuality(order, result, 100)
	assert.NoError(t, err)
	assert.True(t, report.SlowFill)
	assert.Equal(t, Excellent, report.Grade)
}

func TestAnalyzeExecutionQualityRejectsDegenerateInputs(t *testing.T) {
	advisor := newTestAdvisor(t)
	order := testOrder(100)
	result := &Result{FillPrice: 100, FillDuration: time.Second}

	_, err := advisor.AnalyzeExecutionQuality(order, result, 0)
	assert.Error(t, err)

	result.FillPrice = 0
	_, err = advisor.AnalyzeExecutionQuality(order, result, 100)
	assert.Error(t, err)
}
