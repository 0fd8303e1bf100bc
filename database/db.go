package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/bands/position"
	"github.com/dnldd/bands/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createTradeTableSQL = "CREATE TABLE IF NOT EXISTS trade (id TEXT PRIMARY KEY, pair TEXT, asset TEXT, side INTEGER, quantity REAL, price REAL, createdon INTEGER)"
	createStatsTableSQL = "CREATE TABLE IF NOT EXISTS stats (id TEXT PRIMARY KEY, pair TEXT, buys INTEGER, sells INTEGER, boughtnotional REAL, soldnotional REAL, createdon INTEGER)"
	persistTradeSQL     = "INSERT INTO trade(id, pair, asset, side, quantity, price, createdon) VALUES(?,?,?,?,?,?,?)"
	findStatsSQL        = "SELECT * FROM stats WHERE id = ?"
	updateStatsSQL      = "UPDATE stats SET buys = buys + ?, sells = sells + ?, boughtnotional = boughtnotional + ?, soldnotional = soldnotional + ? WHERE id = ?"
	persistStatsSQL     = "INSERT INTO stats(id, pair, buys, sells, boughtnotional, soldnotional, createdon) VALUES(?,?,?,?,?,?,?)"
)

// TradeStorer defines the requirements for storing trades.
type TradeStorer interface {
	// PersistTrade stores the provided executed trade to the database.
	PersistTrade(ctx context.Context, trade *position.Trade) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *DatabaseConfig) Validate() error {
	var errs error

	if cfg.Endpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the TradeStorer interface.
var _ TradeStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating database config: %w", err)
	}

	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	if cfg.User != "" {
		client.SetBasicAuth(cfg.User, cfg.Pass)
	}

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createTradeTableSQL},
		{SQL: createStatsTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("creating tables: %d -> %s", idx, errStr)
	}

	return nil
}

// generateStatsID generates deterministic ids for trade stats using the
// current month, week and pair.
func generateStatsID(currentTime time.Time, pair string) string {
	month := currentTime.Month().String()
	week := currentTime.Day() / 7

	id := fmt.Sprintf("%s-Week-%d-%s", month, week, pair)
	return id
}

// statsDelta returns the stats increments contributed by the provided trade.
func statsDelta(trade *position.Trade) (int, int, float64, float64, error) {
	var buys, sells int
	var bought, sold float64

	notional := trade.Quantity * trade.Price

	switch trade.Side {
	case shared.Buy:
		buys++
		bought = notional
	case shared.Sell:
		sells++
		sold = notional
	default:
		return 0, 0, 0, 0, fmt.Errorf("unexpected trade side for stats: %s", trade.Side.String())
	}

	return buys, sells, bought, sold, nil
}

// hasRows checks whether the provided query response returned any rows.
func hasRows(resp *rqlitehttp.QueryResponse) bool {
	switch results := resp.Results.(type) {
	case []rqlitehttp.QueryResult:
		for idx := range results {
			if len(results[idx].Values) > 0 {
				return true
			}
		}
	case []rqlitehttp.QueryResultAssoc:
		for idx := range results {
			if len(results[idx].Rows) > 0 {
				return true
			}
		}
	}

	return false
}

// PersistTrade stores the provided executed trade to the database.
func (db *Database) PersistTrade(ctx context.Context, trade *position.Trade) error {
	buys, sells, bought, sold, err := statsDelta(trade)
	if err != nil {
		db.cfg.Logger.Error().Msgf("unexpected trade state: %s", spew.Sdump(trade))
		return err
	}

	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistTradeSQL,
			PositionalParams: []any{trade.ID, trade.Pair, trade.Asset, int(trade.Side), trade.Quantity,
				trade.Price, trade.CreatedOn},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}
	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("persisting trade %s: %d -> %s", trade.ID, idx, errStr)
	}

	now := time.Unix(int64(trade.CreatedOn), 0).UTC()
	id := generateStatsID(now, trade.Pair)
	found, err := db.client.QuerySingle(ctx, findStatsSQL, id)
	if err != nil {
		return err
	}

	has, idx, errStr = found.HasError()
	if has {
		return fmt.Errorf("finding stats %s: %d -> %s", id, idx, errStr)
	}

	exists := hasRows(found)
	switch {
	case exists:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              updateStatsSQL,
				PositionalParams: []any{buys, sells, bought, sold, id},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("updating stats %s: %d -> %s", id, idx, errStr)
		}
	default:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              persistStatsSQL,
				PositionalParams: []any{id, trade.Pair, buys, sells, bought, sold, now.Unix()},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("persisting stats %s: %d -> %s", id, idx, errStr)
		}
	}

	db.cfg.Logger.Debug().Msgf("persisted %s trade %s", trade.Side.String(), trade.ID)

	return nil
}
