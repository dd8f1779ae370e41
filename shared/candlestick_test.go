package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestFetchSentiment(t *testing.T) {
	tests := []struct {
		name   string
		candle Candlestick
		want   Sentiment
	}{
		{
			name: "neutral candle",
			candle: Candlestick{
				Open:  5,
				Close: 5,
				High:  9,
				Low:   1,
			},
			want: Neutral,
		},
		{
			name: "bullish candle",
			candle: Candlestick{
				Open:  5,
				Close: 15,
				High:  20,
				Low:   1,
			},
			want: Bullish,
		},
		{
			name: "bearish candle",
			candle: Candlestick{
				Open:  15,
				Close: 5,
				High:  20,
				Low:   1,
			},
			want: Bearish,
		},
	}

	for _, test := range tests {
		sentiment := test.candle.FetchSentiment()
		if sentiment != test.want {
			t.Errorf("%s: expected %s sentiment, got %s",
				test.name, test.want.String(), sentiment.String())
		}
	}
}

func TestValidate(t *testing.T) {
	date := time.Date(2024, 5, 20, 10, 5, 0, 0, time.UTC)

	tests := []struct {
		name    string
		candle  Candlestick
		wantErr bool
	}{
		{
			name: "valid candle",
			candle: Candlestick{
				Open:   5,
				Close:  8,
				High:   9,
				Low:    4,
				Volume: 2,
				Date:   date,
			},
			wantErr: false,
		},
		{
			name: "high below close",
			candle: Candlestick{
				Open:   5,
				Close:  8,
				High:   7,
				Low:    4,
				Volume: 2,
				Date:   date,
			},
			wantErr: true,
		},
		{
			name: "low above open",
			candle: Candlestick{
				Open:   5,
				Close:  8,
				High:   9,
				Low:    6,
				Volume: 2,
				Date:   date,
			},
			wantErr: true,
		},
		{
			name: "negative volume",
			candle: Candlestick{
				Open:   5,
				Close:  8,
				High:   9,
				Low:    4,
				Volume: -1,
				Date:   date,
			},
			wantErr: true,
		},
		{
			name: "zero close time",
			candle: Candlestick{
				Open:   5,
				Close:  8,
				High:   9,
				Low:    4,
				Volume: 2,
			},
			wantErr: true,
		},
	}

	for _, test := range tests {
		err := test.candle.Validate()
		if test.wantErr {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
		}
	}
}
