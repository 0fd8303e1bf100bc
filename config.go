package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	defaultTicker        = "BTC"
	defaultCurrency      = "DAI"
	defaultInterval      = 60 * 5
	defaultDuration      = 20
	defaultLookback      = 9
	defaultTradingAmount = 50
	defaultPrecision     = 1
	defaultLogLevel      = "info"
)

// Config is the configuration struct for the service.
type Config struct {
	// Ticker is the traded asset.
	Ticker string
	// Currency is the asset trades are paid in.
	Currency string
	// Interval is the price sampling interval in seconds.
	Interval int
	// Duration is the number of samples the band is computed over.
	Duration int
	// Lookback is the window index whose price is tested against the band.
	Lookback int
	// TradingAmount is the quote amount allocated per buy.
	TradingAmount float64
	// Precision is the number of decimal digits quantities are truncated to.
	Precision int
	// BinanceAPIKey is the Binance API key.
	BinanceAPIKey string
	// BinanceSecretKey is the Binance API secret.
	BinanceSecretKey string
	// BinanceBaseURL is the Binance API base url.
	BinanceBaseURL string
	// LineNotifyAPI is the LINE Notify endpoint.
	LineNotifyAPI string
	// LineNotifyToken authorizes trade notifications.
	LineNotifyToken string
	// LineNotifyErrorToken authorizes error notifications.
	LineNotifyErrorToken string
	// DBEndpoint is the trade journal database endpoint, journalling is disabled when empty.
	DBEndpoint string
	// DBUser is the trade journal database user.
	DBUser string
	// DBPass is the trade journal database user pass.
	DBPass string
	// LogLevel is the application log level.
	LogLevel string

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.Ticker == "" {
		errs = errors.Join(errs, fmt.Errorf("ticker cannot be an empty string"))
	}
	if cfg.Currency == "" {
		errs = errors.Join(errs, fmt.Errorf("currency cannot be an empty string"))
	}
	if cfg.Interval <= 0 {
		errs = errors.Join(errs, fmt.Errorf("interval must be positive"))
	}
	if cfg.Duration < 2 {
		errs = errors.Join(errs, fmt.Errorf("duration must be at least 2"))
	}
	if cfg.Lookback < 0 || cfg.Lookback >= cfg.Duration {
		errs = errors.Join(errs, fmt.Errorf("lookback must be within [0, duration)"))
	}
	if cfg.TradingAmount <= 0 {
		errs = errors.Join(errs, fmt.Errorf("trading amount must be positive"))
	}
	if cfg.Precision < 0 {
		errs = errors.Join(errs, fmt.Errorf("precision cannot be negative"))
	}
	if cfg.BinanceAPIKey == "" {
		errs = errors.Join(errs, fmt.Errorf("binance api key cannot be an empty string"))
	}
	if cfg.BinanceSecretKey == "" {
		errs = errors.Join(errs, fmt.Errorf("binance secret key cannot be an empty string"))
	}
	if cfg.LineNotifyToken == "" {
		errs = errors.Join(errs, fmt.Errorf("line notify token cannot be an empty string"))
	}
	if cfg.LineNotifyErrorToken == "" {
		errs = errors.Join(errs, fmt.Errorf("line notify error token cannot be an empty string"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, fallback string, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	if defValue == "" {
		defValue = fallback
	}

	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			var err error
			def, err = strconv.Atoi(defValue)
			if err != nil {
				return fmt.Errorf("%s: parsing default %q: %w", name, defValue, err)
			}
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Float64:
		var def float64
		if defValue != "" {
			var err error
			def, err = strconv.ParseFloat(defValue, 64)
			if err != nil {
				return fmt.Errorf("%s: parsing default %q: %w", name, defValue, err)
			}
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name     string
		value    interface{}
		fallback string
		usage    string
	}{
		{"ticker", &cfg.Ticker, defaultTicker, "the traded asset"},
		{"currency", &cfg.Currency, defaultCurrency, "the asset trades are paid in"},
		{"interval", &cfg.Interval, strconv.Itoa(defaultInterval), "the price sampling interval in seconds"},
		{"duration", &cfg.Duration, strconv.Itoa(defaultDuration), "the number of samples the band is computed over"},
		{"lookback", &cfg.Lookback, strconv.Itoa(defaultLookback), "the window index tested against the band"},
		{"tradingamount", &cfg.TradingAmount, strconv.Itoa(defaultTradingAmount), "the quote amount allocated per buy"},
		{"precision", &cfg.Precision, strconv.Itoa(defaultPrecision), "the decimal digits quantities are truncated to"},
		{"binanceapikey", &cfg.BinanceAPIKey, "", "the binance api key"},
		{"binancesecretkey", &cfg.BinanceSecretKey, "", "the binance secret key"},
		{"binancebaseurl", &cfg.BinanceBaseURL, "https://api.binance.com", "the binance api base url"},
		{"linenotifyapi", &cfg.LineNotifyAPI, "https://notify-api.line.me/api/notify", "the line notify endpoint"},
		{"linenotifytoken", &cfg.LineNotifyToken, "", "the line notify trade token"},
		{"linenotifyerrortoken", &cfg.LineNotifyErrorToken, "", "the line notify error token"},
		{"dbendpoint", &cfg.DBEndpoint, "", "the trade journal database endpoint"},
		{"dbuser", &cfg.DBUser, "", "the trade journal database user"},
		{"dbpass", &cfg.DBPass, "", "the trade journal database pass"},
		{"loglevel", &cfg.LogLevel, defaultLogLevel, "the log level"},
	}

	for idx := range flags {
		err = cfg.registerFlag(flags[idx].name, flags[idx].value, flags[idx].fallback, flags[idx].usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
