// options.go configures the ingest transport.

package ingest

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/tdevents/tdevents-go/pkg/tdevents/config"
)

// Option configures the ingest transport.
type Option func(*transportConfig)

type transportConfig struct {
	endpoint     string
	client       *http.Client
	timeout      time.Duration
	maxQueueSize int
	retry        RetryConfig
	logger       *slog.Logger
}

// WithEndpoint sets the ingestion API base URL (default: DefaultEndpoint).
func WithEndpoint(endpoint string) Option {
	return func(c *transportConfig) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets the HTTP client used for uploads.
func WithHTTPClient(client *http.Client) Option {
	return func(c *transportConfig) {
		c.client = client
	}
}

// WithTimeout bounds each HTTP attempt (default: DefaultTimeout).
func WithTimeout(d time.Duration) Option {
	return func(c *transportConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxQueueSize bounds the pending queue (default: DefaultMaxQueueSize).
func WithMaxQueueSize(size int) Option {
	return func(c *transportConfig) {
		if size > 0 {
			c.maxQueueSize = size
		}
	}
}

// WithRetry sets the retry policy for failed uploads.
func WithRetry(retry RetryConfig) Option {
	return func(c *transportConfig) {
		c.retry = retry
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *transportConfig) {
		c.logger = logger
	}
}

// RetryConfig controls retries of network errors, 429 and 5xx responses.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	// Zero disables retries.
	MaxRetries int

	// BackoffBase is the delay before the first retry; each retry doubles it.
	BackoffBase time.Duration

	// BackoffMax caps the delay between retries.
	BackoffMax time.Duration
}

// DefaultRetryConfig returns 3 retries starting at 1s, capped at 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		BackoffBase: 1 * time.Second,
		BackoffMax:  30 * time.Second,
	}
}

const maxBackoff = time.Duration(math.MaxInt64)

// backoff returns min(base*2^attempt + jitter(0, base), max).
func (r RetryConfig) backoff(attempt int) time.Duration {
	if r.BackoffBase <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	// Saturate instead of wrapping for large bases.
	delay := maxBackoff
	if r.BackoffBase <= maxBackoff>>attempt {
		delay = r.BackoffBase << attempt
	}
	if jitter := rand.N(r.BackoffBase); delay <= maxBackoff-jitter {
		delay += jitter
	} else {
		delay = maxBackoff
	}
	if r.BackoffMax > 0 && delay > r.BackoffMax {
		delay = r.BackoffMax
	}
	return delay
}

// FromConfig creates a transport from loaded configuration. Options are
// applied after the configured values, so they take precedence.
func FromConfig(cfg config.Config, opts ...Option) (*Transport, error) {
	if cfg.APIKey == "" {
		return nil, config.ErrMissingAPIKey
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base := []Option{
		WithEndpoint(cfg.Endpoint),
		WithMaxQueueSize(cfg.MaxQueueSize),
		WithTimeout(cfg.RequestTimeout),
	}
	if cfg.MaxRetries != nil {
		retry := DefaultRetryConfig()
		retry.MaxRetries = *cfg.MaxRetries
		base = append(base, WithRetry(retry))
	}
	return NewTransport(cfg.APIKey, append(base, opts...)...), nil
}
