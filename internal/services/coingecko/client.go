package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"crypto-tracker/internal/logging"
	"crypto-tracker/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
)

var (
	// ErrNetwork is returned when every attempt failed at the transport or
	// HTTP status level.
	ErrNetwork = errors.New("coingecko: network error")
	// ErrDecode is returned when the last attempt got a body that is not a
	// markets array.
	ErrDecode = errors.New("coingecko: malformed response")
)

const maxErrorBody = 256

type Config struct {
	BaseURL        string
	VsCurrency     string
	PerPage        int
	Timeout        time.Duration
	MaxAttempts    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// DefaultConfig mirrors the public markets endpoint settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.coingecko.com/api/v3/coins/markets",
		VsCurrency:     "usd",
		PerPage:        50,
		Timeout:        10 * time.Second,
		MaxAttempts:    3,
		BackoffInitial: 2 * time.Second,
		BackoffMax:     10 * time.Second,
	}
}

type Client struct {
	cfg    Config
	client *resty.Client
	logger *logging.Logger
	timer  backoff.Timer
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects the http.Client resty sends through. The client is
// copied so the configured timeout does not leak back to the caller.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.client = resty.NewWithClient(&cp)
		}
	}
}

// WithTimer replaces the timer used to wait between attempts.
func WithTimer(t backoff.Timer) Option {
	return func(c *Client) {
		c.timer = t
	}
}

func NewClient(cfg Config, logger *logging.Logger, opts ...Option) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	c := &Client{
		cfg:    cfg,
		client: resty.New(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client.SetTimeout(cfg.Timeout)
	c.client.SetHeader("Accept", "application/json")
	c.client.SetLogger(restyLogger{logger})
	return c
}

// restyLogger keeps resty's own output in the tracker log. Request errors are
// already reported by FetchMarkets, so resty's copies are dropped.
type restyLogger struct {
	l *logging.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) {}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.l.Info("resty: "+format, v...)
}

func (r restyLogger) Debugf(format string, v ...interface{}) {}

// FetchMarkets returns the first page of coins ordered by market cap.
func (c *Client) FetchMarkets(ctx context.Context) ([]models.MarketCoin, error) {
	var (
		coins    []models.MarketCoin
		attempts int
	)

	operation := func() error {
		attempts++
		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(c.queryParams()).
			Get(c.cfg.BaseURL)
		if err != nil {
			c.logger.Error("API Error: %v", err)
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}

		if !resp.IsSuccess() {
			err := fmt.Errorf("http status %d: %s", resp.StatusCode(), truncate(resp.String()))
			c.logger.Error("API Error: %v", err)
			return err
		}

		var decoded []models.MarketCoin
		if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
			c.logger.Error("API Error: %v", err)
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		coins = decoded
		return nil
	}

	if err := backoff.RetryNotifyWithTimer(operation, c.newBackOff(ctx), nil, c.timer); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if errors.Is(err, ErrDecode) {
			return nil, fmt.Errorf("%d attempt(s): %w", attempts, err)
		}
		return nil, fmt.Errorf("%w: %d attempt(s): %w", ErrNetwork, attempts, err)
	}

	c.logger.Info("Data fetched successfully")
	return coins, nil
}

// newBackOff waits BackoffInitial, doubling up to BackoffMax, for at most
// MaxAttempts total attempts.
func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.BackoffInitial
	eb.MaxInterval = c.cfg.BackoffMax
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0

	retries := uint64(c.cfg.MaxAttempts - 1)
	return backoff.WithContext(backoff.WithMaxRetries(eb, retries), ctx)
}

func (c *Client) queryParams() map[string]string {
	return map[string]string{
		"vs_currency":             c.cfg.VsCurrency,
		"order":                   "market_cap_desc",
		"per_page":                strconv.Itoa(c.cfg.PerPage),
		"page":                    "1",
		"sparkline":               "false",
		"price_change_percentage": "24h",
	}
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}
