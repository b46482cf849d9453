package ghclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
)

// RetryConfig configures retry behavior for GitHub API calls.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts. Default: 3
	MaxRetries int

	// InitialBackoff is the initial backoff duration. Default: 1 second
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration. Default: 30 seconds
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff. Default: 2
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ApplyDefaults sets default values for unset fields. A negative MaxRetries
// disables retries.
func (c *RetryConfig) ApplyDefaults() {
	defaults := DefaultRetryConfig()

	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = defaults.InitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaults.MaxBackoff
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = defaults.BackoffMultiplier
	}
}

// retry runs operation until it succeeds, fails with a non-retryable error
// or the attempts are exhausted.
func retry(ctx context.Context, cfg RetryConfig, logger *logging.Logger, operation func() (*github.Response, error)) (*github.Response, error) {
	var lastErr error
	var lastResp *github.Response
	backoff := cfg.InitialBackoff
	start := time.Now()

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		resp, err := operation()
		if err == nil {
			if attempt > 0 {
				logger.Info(ctx, "GitHub API operation recovered after retries",
					zap.Int("attempts", attempt),
					zap.Duration("total_time", time.Since(start)),
				)
			}
			return resp, nil
		}

		lastErr = err
		lastResp = resp

		if ctx.Err() != nil || !isRetryable(err, resp) {
			return resp, err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		var abuse *github.AbuseRateLimitError
		if errors.As(err, &abuse) && abuse.RetryAfter != nil {
			backoff = min(*abuse.RetryAfter, cfg.MaxBackoff)
			logger.Info(ctx, "GitHub API secondary rate limit hit, backing off",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
		} else if isRateLimit(resp) {
			backoff = rateLimitBackoff(resp, cfg.MaxBackoff)
			logger.Info(ctx, "GitHub API rate limit hit, backing off",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
		} else {
			logger.Debug(ctx, "retrying GitHub API operation after transient error",
				zap.Int("attempt", attempt+1),
				zap.Int("status_code", statusCode(resp)),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("operation canceled: %w", ctx.Err())
		case <-time.After(backoff):
			backoff = min(time.Duration(float64(backoff)*cfg.BackoffMultiplier), cfg.MaxBackoff)
		}
	}

	logger.Warn(ctx, "GitHub API operation failed after all retries",
		zap.Int("total_attempts", cfg.MaxRetries+1),
		zap.Int("status_code", statusCode(lastResp)),
		zap.Error(lastErr),
	)
	return lastResp, fmt.Errorf("GitHub API operation failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

// isRetryable reports whether a GitHub API error is worth another attempt.
func isRetryable(err error, resp *github.Response) bool {
	if err == nil {
		return false
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return true
	}
	if resp == nil || resp.Response == nil {
		// transport failure
		return true
	}

	switch code := resp.StatusCode; code {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		// secondary rate limits come back as 403 with rate headers
		return resp.Rate.Limit > 0 && resp.Rate.Remaining == 0
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity:
		return false
	default:
		return code >= 500 && code < 600
	}
}

func isRateLimit(resp *github.Response) bool {
	if resp == nil || resp.Response == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		return resp.Rate.Limit > 0 && resp.Rate.Remaining == 0
	}
	return false
}

// rateLimitBackoff waits until the advertised reset, capped at maxBackoff.
func rateLimitBackoff(resp *github.Response, maxBackoff time.Duration) time.Duration {
	if resp == nil || resp.Rate.Reset.Time.IsZero() {
		return maxBackoff
	}
	backoff := time.Until(resp.Rate.Reset.Time) + time.Second
	if backoff < time.Second {
		backoff = time.Second
	}
	return min(backoff, maxBackoff)
}

func statusCode(resp *github.Response) int {
	if resp != nil && resp.Response != nil {
		return resp.StatusCode
	}
	return 0
}
