package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/dnldd/bands/indicator"
	"github.com/dnldd/bands/shared"
)

// ErrNoPriorBuy is returned when a position is held but the trade history has
// no buy fill to recover its entry price from.
var ErrNoPriorBuy = errors.New("no prior buy fill found")

// DecisionInput represents the state evaluated by a single decision cycle.
type DecisionInput struct {
	// Window is the trailing price window the band was computed over.
	Window []float64
	// LookbackIndex is the window index whose price is tested against the band.
	LookbackIndex int
	// LatestPrice is the most recently sampled price.
	LatestPrice float64
	// Band is the band for the window, nil while warming up.
	Band *indicator.Band
	// Held is the truncated free balance of the traded asset.
	Held float64
	// Fills is the trade history for the pair, oldest first. Only consulted when holding.
	Fills []shared.Fill
	// Notional is the quote amount allocated per buy.
	Notional float64
	// Precision is the number of decimal digits quantities are truncated to.
	Precision int32
}

// LastBuyPrice returns the price of the most recent buy fill in the provided
// trade history.
func LastBuyPrice(fills []shared.Fill) (float64, error) {
	for idx := len(fills) - 1; idx > -1; idx-- {
		if fills[idx].IsBuyer {
			return fills[idx].Price, nil
		}
	}

	return 0, ErrNoPriorBuy
}

// Decide evaluates the provided input and returns the trade to execute.
func Decide(in *DecisionInput) (shared.TradeIntent, error) {
	if in.Band == nil {
		// Warming up, no band to trade against.
		return shared.NoIntent(), nil
	}

	if in.LookbackIndex < 0 || in.LookbackIndex >= len(in.Window) {
		return shared.NoIntent(), fmt.Errorf("lookback index %d out of range for window of %d samples",
			in.LookbackIndex, len(in.Window))
	}

	// NB: the crossing test uses the price at the fixed lookback index against the
	// band of the whole window, not the latest price.
	price := in.Window[in.LookbackIndex]

	if math.IsInf(in.Held, 0) || math.IsNaN(in.Held) {
		return shared.NoIntent(), fmt.Errorf("non-finite held quantity: %f", in.Held)
	}

	switch {
	case in.Held > 0:
		if !in.Band.IsAbove(price) {
			return shared.NoIntent(), nil
		}

		lastBuy, err := LastBuyPrice(in.Fills)
		if err != nil {
			return shared.NoIntent(), fmt.Errorf("holding %f with no entry price: %w", in.Held, err)
		}

		if lastBuy >= in.LatestPrice {
			return shared.NoIntent(), nil
		}

		return shared.NewSellAllIntent(shared.Truncate(in.Held, in.Precision)), nil

	default:
		if !in.Band.IsBelow(price) {
			return shared.NoIntent(), nil
		}

		if in.LatestPrice <= 0 || math.IsInf(in.LatestPrice, 0) || math.IsNaN(in.LatestPrice) {
			return shared.NoIntent(), fmt.Errorf("invalid latest price for buy sizing: %f", in.LatestPrice)
		}

		raw := in.Notional / in.LatestPrice
		if math.IsInf(raw, 0) || math.IsNaN(raw) {
			return shared.NoIntent(), fmt.Errorf("non-finite buy quantity for %f at %f", in.Notional, in.LatestPrice)
		}

		quantity := shared.Truncate(raw, in.Precision)
		if quantity <= 0 {
			return shared.NoIntent(), nil
		}

		return shared.NewBuyIntent(quantity), nil
	}
}
