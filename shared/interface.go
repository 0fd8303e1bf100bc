package shared

import (
	"context"
)

// Exchange defines the requirements for sampling prices and trading a pair.
type Exchange interface {
	// FetchPrice fetches the last traded price of the provided pair.
	FetchPrice(ctx context.Context, pair string) (float64, error)
	// FetchFreeBalance fetches the free balance of the provided asset.
	FetchFreeBalance(ctx context.Context, asset string) (float64, error)
	// FetchTrades fetches the account's trade history for the provided pair, oldest first.
	FetchTrades(ctx context.Context, pair string) ([]Fill, error)
	// PlaceMarketSell submits a market sell order for the provided quantity.
	PlaceMarketSell(ctx context.Context, pair string, quantity float64) error
	// PlaceMarketBuy submits a market buy order for the provided quantity.
	PlaceMarketBuy(ctx context.Context, pair string, quantity float64) error
}

// Notifier defines the requirements for sending outbound alerts.
type Notifier interface {
	// Notify sends the provided trade message.
	Notify(ctx context.Context, message string) error
	// NotifyError sends the provided error message.
	NotifyError(ctx context.Context, message string) error
}
