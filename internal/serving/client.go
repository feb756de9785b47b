package serving

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrServerUnavailable is returned when the serving process never reports itself alive
	ErrServerUnavailable = errors.New("model server unavailable")
)

const (
	pingPath   = "/ping"
	reloadPath = "/model/reload"
)

// Config holds the serving process connection settings
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	HealthAttempts int
	HealthBackoff  time.Duration
}

// DefaultConfig returns the settings of a serving process on localhost
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://127.0.0.1:5000",
		Timeout:        30 * time.Second,
		HealthAttempts: 50,
		HealthBackoff:  5 * time.Second,
	}
}

// Client talks to the model serving process over HTTP
type Client struct {
	config Config
	http   *http.Client
	logger zerolog.Logger
}

// NewClient creates a serving client
func NewClient(config Config, logger zerolog.Logger) *Client {
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: logger.With().Str("component", "serving_client").Str("base_url", config.BaseURL).Logger(),
	}
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.config.BaseURL, "/") + path
}

func (c *Client) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), nil)
	if err != nil {
		return fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

// Ping reports whether the serving process considers itself alive
func (c *Client) Ping(ctx context.Context) (bool, error) {
	var body struct {
		Alive bool `json:"alive"`
	}
	if err := c.do(ctx, http.MethodGet, pingPath, &body); err != nil {
		return false, err
	}
	return body.Alive, nil
}

// WaitUntilAlive polls /ping until the server answers alive, retrying a
// bounded number of times with a fixed backoff.
func (c *Client) WaitUntilAlive(ctx context.Context) error {
	attempts := c.config.HealthAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		alive, err := c.Ping(ctx)
		switch {
		case err == nil && alive:
			c.logger.Info().Int("attempt", attempt).Msg("Model server is alive")
			return nil
		case err == nil:
			lastErr = errors.New("server reported not alive")
		default:
			lastErr = err
		}

		c.logger.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("backoff", c.config.HealthBackoff).
			Msg("Model server not ready")

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.config.HealthBackoff):
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrServerUnavailable, attempts, lastErr)
}

// Reload asks the serving process to re-read the checkpoint and returns its
// acknowledgement.
func (c *Client) Reload(ctx context.Context) (map[string]interface{}, error) {
	ack := map[string]interface{}{}
	if err := c.do(ctx, http.MethodPost, reloadPath, &ack); err != nil {
		return nil, err
	}

	c.logger.Info().Interface("response", ack).Msg("Model reloaded")
	return ack, nil
}
