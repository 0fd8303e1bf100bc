package position

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dnldd/bands/shared"
	"github.com/google/uuid"
)

// Trade represents a market order submitted by the trader.
type Trade struct {
	ID        string
	Pair      string
	Asset     string
	Side      shared.Side
	Quantity  float64
	Price     float64
	Precision int32
	CreatedOn uint64
}

// NewTrade initializes a new trade.
func NewTrade(pair string, asset string, side shared.Side, quantity float64, price float64, precision int32) (*Trade, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("trade quantity must be positive, got %f", quantity)
	}
	if price <= 0 {
		return nil, fmt.Errorf("trade price must be positive, got %f", price)
	}

	trade := &Trade{
		ID:        uuid.New().String(),
		Pair:      pair,
		Asset:     asset,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Precision: precision,
		CreatedOn: uint64(time.Now().Unix()),
	}

	return trade, nil
}

// Message stringifies the trade for notifications, e.g. "buy 10.0BTC @5".
func (t *Trade) Message() string {
	return fmt.Sprintf("%s %s%s @%s", t.Side.String(), shared.FormatQuantity(t.Quantity, t.Precision),
		t.Asset, strconv.FormatFloat(t.Price, 'f', -1, 64))
}
