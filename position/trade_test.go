package position

import (
	"testing"

	"github.com/dnldd/bands/shared"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
)

func TestNewTrade(t *testing.T) {
	// Ensure invalid quantities and prices error.
	_, err := NewTrade("BTCDAI", "BTC", shared.Buy, 0, 10, 1)
	assert.Error(t, err)

	_, err = NewTrade("BTCDAI", "BTC", shared.Buy, 1, 0, 1)
	assert.Error(t, err)

	// Ensure a valid trade can be created.
	trade, err := NewTrade("BTCDAI", "BTC", shared.Buy, 10, 5, 1)
	assert.NoError(t, err)
	_, err = uuid.Parse(trade.ID)
	assert.NoError(t, err)
	assert.True(t, trade.CreatedOn > 0)

	// Ensure trade messages are formatted as expected.
	assert.Equal(t, trade.Message(), "buy 10.0BTC @5")

	sell, err := NewTrade("BTCDAI", "BTC", shared.Sell, 0.5, 64123.45, 1)
	assert.NoError(t, err)
	assert.Equal(t, sell.Message(), "sell 0.5BTC @64123.45")
}
