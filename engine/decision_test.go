package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/dnldd/bands/indicator"
	"github.com/dnldd/bands/shared"
	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

func mustBand(t *testing.T, window []float64) *indicator.Band {
	t.Helper()

	band, err := indicator.ComputeBand(window)
	assert.NoError(t, err)

	return band
}

func TestLastBuyPrice(t *testing.T) {
	// Ensure an empty history errors.
	_, err := LastBuyPrice(nil)
	assert.True(t, errors.Is(err, ErrNoPriorBuy))

	// Ensure a sell only history errors.
	_, err = LastBuyPrice([]shared.Fill{{Price: 12, IsBuyer: false}})
	assert.True(t, errors.Is(err, ErrNoPriorBuy))

	// Ensure the most recent buy is returned.
	fills := []shared.Fill{
		{ID: 1, Price: 15, IsBuyer: true},
		{ID: 2, Price: 17, IsBuyer: false},
		{ID: 3, Price: 16, IsBuyer: true},
		{ID: 4, Price: 19, IsBuyer: false},
	}

	price, err := LastBuyPrice(fills)
	assert.NoError(t, err)
	assert.Equal(t, price, float64(16))
}

func TestDecideWarmUp(t *testing.T) {
	// Ensure no trade is taken without a band regardless of prices or position.
	windows := [][]float64{
		{},
		{1},
		{1000, 1},
		{5, 5, 5},
	}

	for _, window := range windows {
		for _, held := range []float64{0, 1.5} {
			intent, err := Decide(&DecisionInput{
				Window:        window,
				LookbackIndex: 0,
				LatestPrice:   1,
				Held:          held,
				Notional:      50,
				Precision:     1,
			})
			assert.NoError(t, err)
			assert.True(t, intent.IsNone())
		}
	}
}

func TestDecideFlat(t *testing.T) {
	dip := []float64{10, 10, 10, 10, 10, 1}
	constant := []float64{10, 10, 10}

	tests := []struct {
		name     string
		window   []float64
		lookback int
		latest   float64
		notional float64
		want     shared.TradeIntent
		wantErr  bool
	}{
		{
			name:     "price below lower band buys",
			window:   dip,
			lookback: 5,
			latest:   1,
			notional: 50,
			want:     shared.NewBuyIntent(50),
		},
		{
			name:     "buy quantity is truncated",
			window:   dip,
			lookback: 5,
			latest:   3,
			notional: 50,
			want:     shared.NewBuyIntent(16.6),
		},
		{
			name:     "lookback price inside band does nothing",
			window:   dip,
			lookback: 0,
			latest:   1,
			notional: 50,
			want:     shared.NoIntent(),
		},
		{
			name:     "price equal to lower band does nothing",
			window:   constant,
			lookback: 2,
			latest:   10,
			notional: 50,
			want:     shared.NoIntent(),
		},
		{
			name:     "buy quantity truncated to zero does nothing",
			window:   dip,
			lookback: 5,
			latest:   1,
			notional: 0.05,
			want:     shared.NoIntent(),
		},
		{
			name:     "infinite latest price errors",
			window:   dip,
			lookback: 5,
			latest:   math.Inf(1),
			notional: 50,
			want:     shared.NoIntent(),
			wantErr:  true,
		},
		{
			name:     "overflowing buy quantity errors",
			window:   dip,
			lookback: 5,
			latest:   math.SmallestNonzeroFloat64,
			notional: 50,
			want:     shared.NoIntent(),
			wantErr:  true,
		},
		{
			name:     "lookback index out of range errors",
			window:   constant,
			lookback: 9,
			latest:   10,
			notional: 50,
			want:     shared.NoIntent(),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, err := Decide(&DecisionInput{
				Window:        tt.window,
				LookbackIndex: tt.lookback,
				LatestPrice:   tt.latest,
				Band:          mustBand(t, tt.window),
				Held:          0,
				Notional:      tt.notional,
				Precision:     1,
			})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, "", cmp.Diff(tt.want, intent))
		})
	}
}

func TestDecideHolding(t *testing.T) {
	spike := []float64{10, 10, 10, 10, 10, 20}
	constant := []float64{10, 10, 10, 10, 10, 10}
	fills := []shared.Fill{
		{ID: 1, Price: 15, IsBuyer: true},
		{ID: 2, Price: 17, IsBuyer: false},
		{ID: 3, Price: 16, IsBuyer: true},
	}

	tests := []struct {
		name      string
		window    []float64
		lookback  int
		latest    float64
		held      float64
		fills     []shared.Fill
		want      shared.TradeIntent
		wantPrior bool
	}{
		{
			name:     "price above upper band in profit sells all",
			window:   spike,
			lookback: 5,
			latest:   20,
			held:     0.56,
			fills:    fills,
			want:     shared.NewSellAllIntent(0.5),
		},
		{
			name:     "price above upper band at a loss does nothing",
			window:   spike,
			lookback: 5,
			latest:   20,
			held:     0.5,
			fills:    append(fills, shared.Fill{ID: 4, Price: 25, IsBuyer: true}),
			want:     shared.NoIntent(),
		},
		{
			name:     "entry price equal to latest does nothing",
			window:   spike,
			lookback: 5,
			latest:   16,
			held:     0.5,
			fills:    fills,
			want:     shared.NoIntent(),
		},
		{
			name:     "price inside band does nothing without consulting history",
			window:   constant,
			lookback: 5,
			latest:   10,
			held:     0.5,
			fills:    nil,
			want:     shared.NoIntent(),
		},
		{
			name:      "price above upper band without a prior buy errors",
			window:    spike,
			lookback:  5,
			latest:    20,
			held:      0.5,
			fills:     []shared.Fill{{ID: 1, Price: 15, IsBuyer: false}},
			want:      shared.NoIntent(),
			wantPrior: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, err := Decide(&DecisionInput{
				Window:        tt.window,
				LookbackIndex: tt.lookback,
				LatestPrice:   tt.latest,
				Band:          mustBand(t, tt.window),
				Held:          tt.held,
				Fills:         tt.fills,
				Notional:      50,
				Precision:     1,
			})
			if tt.wantPrior {
				assert.True(t, errors.Is(err, ErrNoPriorBuy))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, "", cmp.Diff(tt.want, intent))
		})
	}
}

func TestDecideNonFiniteHeld(t *testing.T) {
	spike := []float64{10, 10, 10, 10, 10, 20}

	// Ensure a non-finite held quantity errors instead of reaching truncation.
	for _, held := range []float64{math.Inf(1), math.NaN()} {
		intent, err := Decide(&DecisionInput{
			Window:        spike,
			LookbackIndex: 5,
			LatestPrice:   20,
			Band:          mustBand(t, spike),
			Held:          held,
			Fills:         []shared.Fill{{ID: 1, Price: 15, IsBuyer: true}},
			Notional:      50,
			Precision:     1,
		})
		assert.Error(t, err)
		assert.True(t, intent.IsNone())
	}
}
