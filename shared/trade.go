package shared

import (
	"time"
)

// Side represents the side of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

// String stringifies the provided side.
func (s *Side) String() string {
	switch *s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Fill represents an executed trade from the account's trade history.
type Fill struct {
	ID       int64
	Price    float64
	Quantity float64
	IsBuyer  bool
	Time     time.Time
}

// IntentKind represents the kind of trade decided on for a tick.
type IntentKind int

const (
	NoTrade IntentKind = iota
	SellAll
	BuyNotional
)

// String stringifies the provided intent kind.
func (k *IntentKind) String() string {
	switch *k {
	case NoTrade:
		return "none"
	case SellAll:
		return "sell all"
	case BuyNotional:
		return "buy"
	default:
		return "unknown"
	}
}

// TradeIntent represents the outcome of a decision cycle.
type TradeIntent struct {
	Kind     IntentKind
	Quantity float64
}

// NoIntent returns a trade intent that takes no action.
func NoIntent() TradeIntent {
	return TradeIntent{Kind: NoTrade}
}

// NewSellAllIntent initializes a sell intent for the full held quantity.
func NewSellAllIntent(quantity float64) TradeIntent {
	return TradeIntent{Kind: SellAll, Quantity: quantity}
}

// NewBuyIntent initializes a buy intent for the provided quantity.
func NewBuyIntent(quantity float64) TradeIntent {
	return TradeIntent{Kind: BuyNotional, Quantity: quantity}
}

// IsNone checks whether the intent takes no action.
func (t TradeIntent) IsNone() bool {
	return t.Kind == NoTrade
}
