package position

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dnldd/bands/shared"
	"github.com/rs/zerolog"
)

// TrackerConfig represents the position tracker configuration.
type TrackerConfig struct {
	// Asset is the traded asset whose balance determines the position.
	Asset string
	// Pair is the traded pair whose history holds the position's entries.
	Pair string
	// Precision is the number of decimal digits tradable quantities are truncated to.
	Precision int32
	// Exchange is the exchange client balances and history are fetched from.
	Exchange shared.Exchange
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *TrackerConfig) Validate() error {
	var errs error

	if cfg.Asset == "" {
		errs = errors.Join(errs, fmt.Errorf("asset cannot be an empty string"))
	}
	if cfg.Pair == "" {
		errs = errors.Join(errs, fmt.Errorf("pair cannot be an empty string"))
	}
	if cfg.Precision < 0 {
		errs = errors.Join(errs, fmt.Errorf("precision cannot be negative"))
	}
	if cfg.Exchange == nil {
		errs = errors.Join(errs, fmt.Errorf("exchange cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Tracker reports the current position on the traded asset. Nothing is cached,
// every query reads the exchange.
type Tracker struct {
	cfg *TrackerConfig
}

// NewTracker initializes a new position tracker.
func NewTracker(cfg *TrackerConfig) (*Tracker, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating tracker config: %w", err)
	}

	return &Tracker{cfg: cfg}, nil
}

// IsHolding checks whether a tradable quantity of the asset is held, returning
// the held quantity truncated to the configured precision.
func (t *Tracker) IsHolding(ctx context.Context) (bool, float64, error) {
	free, err := t.cfg.Exchange.FetchFreeBalance(ctx, t.cfg.Asset)
	if err != nil {
		return false, 0, fmt.Errorf("fetching %s balance: %w", t.cfg.Asset, err)
	}

	if math.IsNaN(free) || math.IsInf(free, 0) {
		return false, 0, fmt.Errorf("non-finite %s balance: %f", t.cfg.Asset, free)
	}

	held := shared.Truncate(free, t.cfg.Precision)
	if held != free {
		t.cfg.Logger.Debug().Msgf("truncated %s balance %f to %f", t.cfg.Asset, free, held)
	}

	return held > 0, held, nil
}

// FetchHistory fetches the trade history for the traded pair.
func (t *Tracker) FetchHistory(ctx context.Context) ([]shared.Fill, error) {
	fills, err := t.cfg.Exchange.FetchTrades(ctx, t.cfg.Pair)
	if err != nil {
		return nil, fmt.Errorf("fetching %s trade history: %w", t.cfg.Pair, err)
	}

	return fills, nil
}
