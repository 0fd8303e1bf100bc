package shared

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestSideString(t *testing.T) {
	tests := []struct {
		side Side
		want string
	}{
		{Buy, "buy"},
		{Sell, "sell"},
		{Side(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.side.String(), tt.want)
	}
}

func TestTradeIntent(t *testing.T) {
	// Ensure the no-op intent reports as such.
	none := NoIntent()
	assert.True(t, none.IsNone())
	assert.Equal(t, none.Kind.String(), "none")

	// Ensure sell and buy intents carry their quantities.
	sell := NewSellAllIntent(0.5)
	assert.False(t, sell.IsNone())
	assert.Equal(t, sell.Kind, SellAll)
	assert.Equal(t, sell.Quantity, 0.5)
	assert.Equal(t, sell.Kind.String(), "sell all")

	buy := NewBuyIntent(10)
	assert.Equal(t, buy.Kind, BuyNotional)
	assert.Equal(t, buy.Quantity, float64(10))
	assert.Equal(t, buy.Kind.String(), "buy")

	unknown := IntentKind(42)
	assert.Equal(t, unknown.String(), "unknown")
}
