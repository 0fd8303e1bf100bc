package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/bands/engine"
	"github.com/dnldd/bands/indicator"
	"github.com/dnldd/bands/position"
	"github.com/dnldd/bands/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

const (
	// notifyTimeout is the maximum time to wait on the fatal error notification.
	notifyTimeout = time.Second * 10
)

// TraderConfig represents the configuration for the trader.
type TraderConfig struct {
	// Asset is the traded asset.
	Asset string
	// Quote is the asset trades are paid in.
	Quote string
	// Interval is the price sampling interval.
	Interval time.Duration
	// Duration is the number of trailing samples the band is computed over.
	Duration int
	// LookbackIndex is the window index whose price is tested against the band.
	LookbackIndex int
	// Notional is the quote amount allocated per buy.
	Notional float64
	// Precision is the number of decimal digits quantities are truncated to.
	Precision int32
	// ProcessName identifies the process in error notifications.
	ProcessName string
	// Exchange represents the exchange client.
	Exchange shared.Exchange
	// Notifier represents the outbound notification client.
	Notifier shared.Notifier
	// PersistTrade persists the provided executed trade, optional.
	PersistTrade func(ctx context.Context, trade *position.Trade) error
	// JobScheduler represents the job scheduler.
	JobScheduler *gocron.Scheduler
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *TraderConfig) Validate() error {
	var errs error

	if cfg.Asset == "" {
		errs = errors.Join(errs, fmt.Errorf("asset cannot be an empty string"))
	}
	if cfg.Quote == "" {
		errs = errors.Join(errs, fmt.Errorf("quote cannot be an empty string"))
	}
	if cfg.Interval <= 0 {
		errs = errors.Join(errs, fmt.Errorf("interval must be positive"))
	}
	if cfg.Duration < 2 {
		errs = errors.Join(errs, fmt.Errorf("duration must be at least 2 samples"))
	}
	if cfg.LookbackIndex < 0 || cfg.LookbackIndex >= cfg.Duration {
		errs = errors.Join(errs, fmt.Errorf("lookback index must be within [0, %d)", cfg.Duration))
	}
	if cfg.Notional <= 0 {
		errs = errors.Join(errs, fmt.Errorf("notional must be positive"))
	}
	if cfg.Precision < 0 {
		errs = errors.Join(errs, fmt.Errorf("precision cannot be negative"))
	}
	if cfg.ProcessName == "" {
		errs = errors.Join(errs, fmt.Errorf("process name cannot be an empty string"))
	}
	if cfg.Exchange == nil {
		errs = errors.Join(errs, fmt.Errorf("exchange cannot be nil"))
	}
	if cfg.Notifier == nil {
		errs = errors.Join(errs, fmt.Errorf("notifier cannot be nil"))
	}
	if cfg.JobScheduler == nil {
		errs = errors.Join(errs, fmt.Errorf("job scheduler cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Pair returns the traded pair symbol.
func (cfg *TraderConfig) Pair() string {
	return cfg.Asset + cfg.Quote
}

// Trader samples the pair's price and trades band crossings.
type Trader struct {
	cfg     *TraderConfig
	window  *shared.PriceWindow
	tracker *position.Tracker
	ticks   atomic.Uint64
	failed  atomic.Bool
	fatal   chan error
}

// NewTrader initializes a new trader.
func NewTrader(cfg *TraderConfig) (*Trader, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating trader config: %w", err)
	}

	window, err := shared.NewPriceWindow(cfg.Duration)
	if err != nil {
		return nil, fmt.Errorf("creating price window: %w", err)
	}

	tracker, err := position.NewTracker(&position.TrackerConfig{
		Asset:     cfg.Asset,
		Pair:      cfg.Pair(),
		Precision: cfg.Precision,
		Exchange:  cfg.Exchange,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating position tracker: %w", err)
	}

	return &Trader{
		cfg:     cfg,
		window:  window,
		tracker: tracker,
		fatal:   make(chan error, 1),
	}, nil
}

// Tick runs a single sampling and decision cycle.
func (t *Trader) Tick(ctx context.Context) error {
	pair := t.cfg.Pair()
	tick := t.ticks.Inc()

	price, err := t.cfg.Exchange.FetchPrice(ctx, pair)
	if err != nil {
		return fmt.Errorf("sampling %s price: %w", pair, err)
	}

	t.window.Append(price)

	if !t.window.IsWarm(t.cfg.Duration) {
		t.cfg.Logger.Debug().Msgf("tick %d: warming up %d/%d samples", tick, t.window.Len(), t.cfg.Duration)
		return nil
	}

	window, err := t.window.TrailingWindow(t.cfg.Duration)
	if err != nil {
		return err
	}

	band, err := indicator.ComputeBand(window)
	if err != nil {
		return fmt.Errorf("computing band: %w", err)
	}

	holding, held, err := t.tracker.IsHolding(ctx)
	if err != nil {
		return err
	}

	var fills []shared.Fill
	if holding {
		fills, err = t.tracker.FetchHistory(ctx)
		if err != nil {
			return err
		}
	}

	intent, err := engine.Decide(&engine.DecisionInput{
		Window:        window,
		LookbackIndex: t.cfg.LookbackIndex,
		LatestPrice:   price,
		Band:          band,
		Held:          held,
		Fills:         fills,
		Notional:      t.cfg.Notional,
		Precision:     t.cfg.Precision,
	})
	if err != nil {
		return fmt.Errorf("deciding on %s: %w", pair, err)
	}

	t.cfg.Logger.Debug().Msgf("tick %d: price %f, band [%f, %f] width %f, held %f, intent %s",
		tick, price, band.Lower, band.Upper, band.Width(), held, intent.Kind.String())

	err = t.execute(ctx, intent, price)
	if err != nil {
		return err
	}

	t.window.EvictOldest()

	return nil
}

// execute submits, notifies and records the provided trade intent.
func (t *Trader) execute(ctx context.Context, intent shared.TradeIntent, price float64) error {
	pair := t.cfg.Pair()

	var side shared.Side
	switch intent.Kind {
	case shared.NoTrade:
		// do nothing.
		return nil
	case shared.SellAll:
		side = shared.Sell
		err := t.cfg.Exchange.PlaceMarketSell(ctx, pair, intent.Quantity)
		if err != nil {
			return fmt.Errorf("selling %f %s: %w", intent.Quantity, t.cfg.Asset, err)
		}
	case shared.BuyNotional:
		side = shared.Buy
		err := t.cfg.Exchange.PlaceMarketBuy(ctx, pair, intent.Quantity)
		if err != nil {
			return fmt.Errorf("buying %f %s: %w", intent.Quantity, t.cfg.Asset, err)
		}
	default:
		return fmt.Errorf("unknown trade intent: %s", intent.Kind.String())
	}

	trade, err := position.NewTrade(pair, t.cfg.Asset, side, intent.Quantity, price, t.cfg.Precision)
	if err != nil {
		return fmt.Errorf("creating trade: %w", err)
	}

	msg := trade.Message()
	t.cfg.Logger.Info().Msg(msg)

	err = t.cfg.Notifier.Notify(ctx, msg)
	if err != nil {
		return fmt.Errorf("notifying trade: %w", err)
	}

	if t.cfg.PersistTrade != nil {
		err = t.cfg.PersistTrade(ctx, trade)
		if err != nil {
			return fmt.Errorf("persisting trade: %w", err)
		}
	}

	return nil
}

// safeTick runs a tick, reporting a panic as the tick's error.
func (t *Trader) safeTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.cfg.Logger.Debug().Msgf("tick panic stack: %s", debug.Stack())
			err = fmt.Errorf("tick panicked: %v", r)
		}
	}()

	return t.Tick(ctx)
}

// runTick runs a scheduled tick, recording the first failure as fatal.
func (t *Trader) runTick(ctx context.Context) {
	if t.failed.Load() {
		return
	}

	err := t.safeTick(ctx)
	if err == nil {
		return
	}

	if t.failed.CAS(false, true) {
		t.fatal <- err
	}
}

// notifyFatal sends the single error notification for the provided failure.
func (t *Trader) notifyFatal(err error) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	msg := fmt.Sprintf("%s terminated.\n%v", t.cfg.ProcessName, err)
	nErr := t.cfg.Notifier.NotifyError(ctx, msg)
	if nErr != nil {
		t.cfg.Logger.Error().Msgf("sending error notification: %v", nErr)
	}
}

// Run samples and trades on the configured interval until a tick fails or the
// context is cancelled. The first failure is notified and returned.
func (t *Trader) Run(ctx context.Context) error {
	_, err := t.cfg.JobScheduler.Every(t.cfg.Interval).WaitForSchedule().SingletonMode().Do(t.runTick, ctx)
	if err != nil {
		return fmt.Errorf("scheduling ticks: %w", err)
	}

	t.cfg.Logger.Info().Msgf("trading %s every %s over %d samples", t.cfg.Pair(), t.cfg.Interval, t.cfg.Duration)

	t.cfg.JobScheduler.StartAsync()
	defer t.cfg.JobScheduler.Stop()

	select {
	case <-ctx.Done():
		t.cfg.Logger.Info().Msgf("trader stopped after %d ticks", t.ticks.Load())
		return nil

	case err := <-t.fatal:
		t.cfg.Logger.Error().Msgf("tick failed: %v", err)
		if t.cfg.Logger.GetLevel() <= zerolog.DebugLevel {
			t.cfg.Logger.Debug().Msgf("window at failure: %s", spew.Sdump(t.snapshot()))
		}
		t.notifyFatal(err)
		return err
	}
}

// snapshot returns the current price window contents.
func (t *Trader) snapshot() []float64 {
	window, err := t.window.TrailingWindow(t.window.Len())
	if err != nil {
		return nil
	}

	return window
}
