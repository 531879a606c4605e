package steam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xaenox/gamer-card/internal/metrics"
)

const (
	DefaultAPIBaseURL   = "https://api.steampowered.com"
	DefaultStoreBaseURL = "https://store.steampowered.com"

	// maxErrorBodySize caps how much of a failed response is kept for logging
	maxErrorBodySize = 4 * 1024
)

type Config struct {
	APIKey            string
	APIBaseURL        string
	StoreBaseURL      string
	Timeout           time.Duration
	RequestsPerSecond float64
	Language          string
	Country           string
}

// Client talks to the Steam Web API and the storefront API. All calls share a
// process-wide token bucket so concurrent runs cannot exceed the key's quota.
// Storefront calls additionally go through a circuit breaker.
type Client struct {
	cfg          Config
	http         *http.Client
	limiter      *rate.Limiter
	storeBreaker *gobreaker.CircuitBreaker[[]byte]
	logger       *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.StoreBaseURL == "" {
		cfg.StoreBaseURL = DefaultStoreBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Language == "" {
		cfg.Language = "english"
	}
	if cfg.Country == "" {
		cfg.Country = "US"
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		cfg:          cfg,
		http:         &http.Client{Timeout: cfg.Timeout},
		limiter:      rate.NewLimiter(limit, 1),
		storeBreaker: newStoreBreaker(logger),
		logger:       logger,
	}
}

func newStoreBreaker(logger *zap.Logger) *gobreaker.CircuitBreaker[[]byte] {
	const name = "steam-store"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a caller giving up says nothing about the store's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
}

// get performs a rate-limited GET and returns the body of a 2xx response
func (c *Client) get(ctx context.Context, endpoint, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.SteamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SteamRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		metrics.SteamRequests.WithLabelValues(endpoint, "http_error").Inc()
		c.logger.Debug("Steam API returned an error status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("%s returned HTTP %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.SteamRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	metrics.SteamRequests.WithLabelValues(endpoint, "ok").Inc()
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, out any) error {
	body, err := c.get(ctx, endpoint, rawURL)
	if err != nil {
		return err
	}
	return decode(endpoint, body, out)
}

// getStoreJSON is getJSON behind the storefront circuit breaker
func (c *Client) getStoreJSON(ctx context.Context, endpoint, rawURL string, out any) error {
	body, err := c.storeBreaker.Execute(func() ([]byte, error) {
		return c.get(ctx, endpoint, rawURL)
	})
	if err != nil {
		return err
	}
	return decode(endpoint, body, out)
}

func decode(endpoint string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) apiURL(path string, params url.Values) string {
	params.Set("key", c.cfg.APIKey)
	params.Set("format", "json")
	return c.cfg.APIBaseURL + path + "?" + params.Encode()
}

func (c *Client) storeURL(path string, params url.Values) string {
	return c.cfg.StoreBaseURL + path + "?" + params.Encode()
}
