package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dnldd/bands/database"
	"github.com/dnldd/bands/fetch"
	"github.com/dnldd/bands/notify"
	"github.com/dnldd/bands/position"
	"github.com/dnldd/bands/service"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	os.Exit(run())
}

// run wires the trader and blocks until it stops, returning the process exit code.
func run() int {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Error().Msgf("loading config: %v", err)
		return 1
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logger := log.With().Str("service", "bands").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetchLogger := logger.With().Str("component", "binance").Logger()
	exchange, err := fetch.NewBinanceClient(&fetch.BinanceConfig{
		APIKey:    cfg.BinanceAPIKey,
		SecretKey: cfg.BinanceSecretKey,
		BaseURL:   cfg.BinanceBaseURL,
		Precision: int32(cfg.Precision),
		Logger:    &fetchLogger,
	})
	if err != nil {
		logger.Error().Msgf("creating binance client: %v", err)
		return 1
	}

	notifyLogger := logger.With().Str("component", "notify").Logger()
	notifier, err := notify.NewLineClient(&notify.LineConfig{
		APIURL:     cfg.LineNotifyAPI,
		Token:      cfg.LineNotifyToken,
		ErrorToken: cfg.LineNotifyErrorToken,
		Logger:     &notifyLogger,
	})
	if err != nil {
		logger.Error().Msgf("creating notify client: %v", err)
		return 1
	}

	var persistTrade func(ctx context.Context, trade *position.Trade) error
	if cfg.DBEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DBEndpoint,
			User:     cfg.DBUser,
			Pass:     cfg.DBPass,
			Logger:   &dbLogger,
		})
		if err != nil {
			logger.Error().Msgf("creating database: %v", err)
			return 1
		}

		persistTrade = db.PersistTrade
	}

	traderLogger := logger.With().Str("component", "trader").Logger()
	trader, err := service.NewTrader(&service.TraderConfig{
		Asset:         cfg.Ticker,
		Quote:         cfg.Currency,
		Interval:      time.Second * time.Duration(cfg.Interval),
		Duration:      cfg.Duration,
		LookbackIndex: cfg.Lookback,
		Notional:      cfg.TradingAmount,
		Precision:     int32(cfg.Precision),
		ProcessName:   filepath.Base(os.Args[0]),
		Exchange:      exchange,
		Notifier:      notifier,
		PersistTrade:  persistTrade,
		JobScheduler:  gocron.NewScheduler(time.UTC),
		Logger:        &traderLogger,
	})
	if err != nil {
		logger.Error().Msgf("creating trader: %v", err)
		return 1
	}

	go handleTermination(ctx, cancel)

	err = trader.Run(ctx)
	if err != nil {
		logger.Error().Msgf("trader terminated: %v", err)
		return 1
	}

	return 0
}
