package fetch

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dnldd/bands/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// BaseURL is the Binance spot REST API base url.
	BaseURL = "https://api.binance.com"
	// recvWindow is the validity window in milliseconds for signed requests.
	recvWindow = "5000"

	tickerPath  = "/api/v3/ticker/24hr"
	accountPath = "/api/v3/account"
	tradesPath  = "/api/v3/myTrades"
	orderPath   = "/api/v3/order"
)

// BinanceConfig represents the configuration for the Binance client.
type BinanceConfig struct {
	// APIKey is the Binance API key.
	APIKey string
	// SecretKey is the Binance API secret used to sign requests.
	SecretKey string
	// BaseURL is the Binance API base url.
	BaseURL string
	// Precision is the number of decimal digits order quantities are sent with.
	Precision int32
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *BinanceConfig) Validate() error {
	var errs error

	if cfg.APIKey == "" {
		errs = errors.Join(errs, fmt.Errorf("binance api key cannot be an empty string"))
	}
	if cfg.SecretKey == "" {
		errs = errors.Join(errs, fmt.Errorf("binance secret key cannot be an empty string"))
	}
	if cfg.BaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("binance base url cannot be an empty string"))
	}
	if cfg.Precision < 0 {
		errs = errors.Join(errs, fmt.Errorf("quantity precision cannot be negative"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// BinanceClient represents the Binance spot API client.
type BinanceClient struct {
	cfg   *BinanceConfig
	httpc http.Client
	buf   *bytes.Buffer
	now   func() time.Time
}

// Ensure the BinanceClient implements the Exchange interface.
var _ shared.Exchange = (*BinanceClient)(nil)

// NewBinanceClient instantiates a new Binance client.
func NewBinanceClient(cfg *BinanceConfig) (*BinanceClient, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating binance config: %w", err)
	}

	return &BinanceClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
		buf:   bytes.NewBuffer(make([]byte, 0, 512)),
		now:   time.Now,
	}, nil
}

// formURL creates full urls including paramters for the api.
func (c *BinanceClient) formURL(path string, params string) string {
	c.buf.WriteString(c.cfg.BaseURL)
	c.buf.WriteString(path)
	if params != "" {
		c.buf.WriteString("?")
		c.buf.WriteString(params)
	}
	url := c.buf.String()
	c.buf.Reset()

	return url
}

// sign appends the timestamp and the HMAC-SHA256 signature of the encoded
// parameters, returning the signed query string.
func (c *BinanceClient) sign(params url.Values) string {
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	params.Set("recvWindow", recvWindow)
	payload := params.Encode()

	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))

	return payload + "&signature=" + signature
}

// do executes the provided request and returns the parsed response body.
func (c *BinanceClient) do(ctx context.Context, method string, path string, params url.Values, signed bool) (gjson.Result, error) {
	var query string
	switch {
	case signed:
		query = c.sign(params)
	default:
		query = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.formURL(path, query), nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("creating request for %s: %w", path, err)
	}

	if signed {
		req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("requesting %s: %w", path, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("reading response body: %w", err)
	}

	data := gjson.ParseBytes(body)

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("%s %s returned status %d: code %d, %s", method, path,
			resp.StatusCode, data.Get("code").Int(), data.Get("msg").String())
	}

	return data, nil
}

// FetchPrice fetches the last traded price of the provided pair.
func (c *BinanceClient) FetchPrice(ctx context.Context, pair string) (float64, error) {
	params := url.Values{}
	params.Add("symbol", pair)

	data, err := c.do(ctx, http.MethodGet, tickerPath, params, false)
	if err != nil {
		return 0, fmt.Errorf("fetching %s ticker: %w", pair, err)
	}

	lastPrice := data.Get("lastPrice")
	if !lastPrice.Exists() {
		return 0, fmt.Errorf("no last price in %s ticker response", pair)
	}

	price, err := parseAmount(lastPrice)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("invalid last price for %s: %s", pair, lastPrice.String())
	}

	return price, nil
}

// FetchFreeBalance fetches the free balance of the provided asset.
func (c *BinanceClient) FetchFreeBalance(ctx context.Context, asset string) (float64, error) {
	data, err := c.do(ctx, http.MethodGet, accountPath, url.Values{}, true)
	if err != nil {
		return 0, fmt.Errorf("fetching account: %w", err)
	}

	balances := data.Get("balances").Array()
	for idx := range balances {
		if balances[idx].Get("asset").String() == asset {
			free, err := parseAmount(balances[idx].Get("free"))
			if err != nil {
				return 0, fmt.Errorf("parsing %s free balance: %w", asset, err)
			}
			return free, nil
		}
	}

	// Assets never held are omitted from the account balances.
	c.cfg.Logger.Debug().Msgf("no %s balance found in account", asset)

	return 0, nil
}

// parseAmount parses a finite, non-negative price or quantity.
func parseAmount(data gjson.Result) (float64, error) {
	amount := data.Float()
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("non-finite amount %q", data.Raw)
	}
	if amount < 0 {
		return 0, fmt.Errorf("negative amount %q", data.Raw)
	}

	return amount, nil
}

// ParseFills parses trade history fills from the provided json data.
func ParseFills(data []gjson.Result) ([]shared.Fill, error) {
	fills := make([]shared.Fill, 0, len(data))
	for idx := range data {
		price, err := parseAmount(data[idx].Get("price"))
		if err != nil {
			return nil, fmt.Errorf("parsing fill %d price: %w", idx, err)
		}
		qty, err := parseAmount(data[idx].Get("qty"))
		if err != nil {
			return nil, fmt.Errorf("parsing fill %d quantity: %w", idx, err)
		}

		fill := shared.Fill{
			ID:       data[idx].Get("id").Int(),
			Price:    price,
			Quantity: qty,
			IsBuyer:  data[idx].Get("isBuyer").Bool(),
			Time:     time.UnixMilli(data[idx].Get("time").Int()).UTC(),
		}

		fills = append(fills, fill)
	}

	return fills, nil
}

// FetchTrades fetches the account's trade history for the provided pair, oldest first.
func (c *BinanceClient) FetchTrades(ctx context.Context, pair string) ([]shared.Fill, error) {
	params := url.Values{}
	params.Add("symbol", pair)

	data, err := c.do(ctx, http.MethodGet, tradesPath, params, true)
	if err != nil {
		return nil, fmt.Errorf("fetching %s trades: %w", pair, err)
	}

	fills, err := ParseFills(data.Array())
	if err != nil {
		return nil, fmt.Errorf("parsing %s trades: %w", pair, err)
	}

	return fills, nil
}

// placeMarketOrder submits a market order for the provided side and quantity.
func (c *BinanceClient) placeMarketOrder(ctx context.Context, pair string, side shared.Side, quantity float64) error {
	params := url.Values{}
	params.Add("symbol", pair)
	switch side {
	case shared.Buy:
		params.Add("side", "BUY")
	case shared.Sell:
		params.Add("side", "SELL")
	default:
		return fmt.Errorf("unknown order side: %s", side.String())
	}
	params.Add("type", "MARKET")
	params.Add("quantity", shared.FormatQuantity(quantity, c.cfg.Precision))

	data, err := c.do(ctx, http.MethodPost, orderPath, params, true)
	if err != nil {
		return fmt.Errorf("placing %s market %s order: %w", pair, side.String(), err)
	}

	c.cfg.Logger.Info().Msgf("placed %s market %s order %d, status %s", pair, side.String(),
		data.Get("orderId").Int(), data.Get("status").String())

	return nil
}

// PlaceMarketSell submits a market sell order for the provided quantity.
func (c *BinanceClient) PlaceMarketSell(ctx context.Context, pair string, quantity float64) error {
	return c.placeMarketOrder(ctx, pair, shared.Sell, quantity)
}

// PlaceMarketBuy submits a market buy order for the provided quantity.
func (c *BinanceClient) PlaceMarketBuy(ctx context.Context, pair string, quantity float64) error {
	return c.placeMarketOrder(ctx, pair, shared.Buy, quantity)
}
