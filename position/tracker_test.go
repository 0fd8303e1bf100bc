package position

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/dnldd/bands/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

type ExchangeMock struct {
	balance    float64
	balanceErr error
	fills      []shared.Fill
	fillsErr   error
}

func (m *ExchangeMock) FetchPrice(ctx context.Context, pair string) (float64, error) {
	return 0, nil
}

func (m *ExchangeMock) FetchFreeBalance(ctx context.Context, asset string) (float64, error) {
	return m.balance, m.balanceErr
}

func (m *ExchangeMock) FetchTrades(ctx context.Context, pair string) ([]shared.Fill, error) {
	return m.fills, m.fillsErr
}

func (m *ExchangeMock) PlaceMarketSell(ctx context.Context, pair string, quantity float64) error {
	return nil
}

func (m *ExchangeMock) PlaceMarketBuy(ctx context.Context, pair string, quantity float64) error {
	return nil
}

func TestTrackerConfigValidate(t *testing.T) {
	// Ensure an empty config reports every missing field.
	cfg := &TrackerConfig{Precision: -1}
	err := cfg.Validate()
	assert.Error(t, err)
	for _, want := range []string{"asset", "pair", "precision", "exchange", "logger"} {
		assert.True(t, strings.Contains(err.Error(), want))
	}

	_, err = NewTracker(cfg)
	assert.Error(t, err)
}

func TestTracker(t *testing.T) {
	mock := &ExchangeMock{}
	tracker, err := NewTracker(&TrackerConfig{
		Asset:     "BTC",
		Pair:      "BTCDAI",
		Precision: 1,
		Exchange:  mock,
		Logger:    &log.Logger,
	})
	assert.NoError(t, err)

	ctx := context.Background()

	// Ensure a zero balance is flat.
	holding, held, err := tracker.IsHolding(ctx)
	assert.NoError(t, err)
	assert.False(t, holding)
	assert.Equal(t, held, float64(0))

	// Ensure dust below the precision is flat.
	mock.balance = 0.07
	holding, held, err = tracker.IsHolding(ctx)
	assert.NoError(t, err)
	assert.False(t, holding)
	assert.Equal(t, held, float64(0))

	// Ensure a tradable balance is held, truncated.
	mock.balance = 1.29
	holding, held, err = tracker.IsHolding(ctx)
	assert.NoError(t, err)
	assert.True(t, holding)
	assert.Equal(t, held, 1.2)

	// Ensure non-finite balances error instead of being truncated.
	mock.balance = math.Inf(1)
	_, _, err = tracker.IsHolding(ctx)
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "non-finite BTC balance"))

	mock.balance = math.NaN()
	_, _, err = tracker.IsHolding(ctx)
	assert.Error(t, err)

	// Ensure balance errors propagate.
	mock.balanceErr = errors.New("boom")
	_, _, err = tracker.IsHolding(ctx)
	assert.Error(t, err)

	// Ensure history is relayed from the exchange.
	mock.fills = []shared.Fill{{ID: 1, Price: 10, IsBuyer: true}}
	fills, err := tracker.FetchHistory(ctx)
	assert.NoError(t, err)
	assert.Equal(t, len(fills), 1)

	mock.fillsErr = errors.New("boom")
	_, err = tracker.FetchHistory(ctx)
	assert.Error(t, err)
}
