package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dnldd/bands/shared"
	"github.com/rs/zerolog"
)

const (
	// DefaultAPIURL is the LINE Notify message endpoint.
	DefaultAPIURL = "https://notify-api.line.me/api/notify"
	// maxErrorBody is the maximum number of response bytes logged on rejection.
	maxErrorBody = 256
)

// LineConfig represents the configuration for the LINE Notify client.
type LineConfig struct {
	// APIURL is the notify endpoint messages are posted to.
	APIURL string
	// Token authorizes trade notifications.
	Token string
	// ErrorToken authorizes error notifications.
	ErrorToken string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *LineConfig) Validate() error {
	var errs error

	if cfg.APIURL == "" {
		errs = errors.Join(errs, fmt.Errorf("notify api url cannot be an empty string"))
	}
	if cfg.Token == "" {
		errs = errors.Join(errs, fmt.Errorf("notify token cannot be an empty string"))
	}
	if cfg.ErrorToken == "" {
		errs = errors.Join(errs, fmt.Errorf("notify error token cannot be an empty string"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// LineClient posts messages to LINE Notify. Trade and error messages are
// routed to separate channels by their token.
type LineClient struct {
	cfg   *LineConfig
	httpc http.Client
}

// Ensure the LineClient implements the Notifier interface.
var _ shared.Notifier = (*LineClient)(nil)

// NewLineClient instantiates a new LINE Notify client.
func NewLineClient(cfg *LineConfig) (*LineClient, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating notify config: %w", err)
	}

	return &LineClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
	}, nil
}

// post sends the provided message authorized by the provided token.
func (c *LineClient) post(ctx context.Context, token string, message string) error {
	form := url.Values{}
	form.Add("message", "message: "+message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating notify request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}

	defer resp.Body.Close()

	// Rejected posts are logged, not returned.
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.cfg.Logger.Warn().Msgf("notify returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Notify sends the provided trade message.
func (c *LineClient) Notify(ctx context.Context, message string) error {
	c.cfg.Logger.Debug().Msgf("notifying: %s", message)
	return c.post(ctx, c.cfg.Token, message)
}

// NotifyError sends the provided error message.
func (c *LineClient) NotifyError(ctx context.Context, message string) error {
	c.cfg.Logger.Debug().Msgf("notifying error: %s", message)
	return c.post(ctx, c.cfg.ErrorToken, message)
}
