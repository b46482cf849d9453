package ghclient

import (
	"errors"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts GitHub API calls by operation and outcome.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "repolens",
		Subsystem: "github",
		Name:      "requests_total",
		Help:      "GitHub API calls by operation and result.",
	}, []string{"op", "result"})

	// RequestDuration observes GitHub API latency including retries.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "repolens",
		Subsystem: "github",
		Name:      "request_duration_seconds",
		Help:      "GitHub API call latency including retries and rate limit waits.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"op"})

	// RateRemaining is the last rate limit budget reported by GitHub.
	RateRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "repolens",
		Subsystem: "github",
		Name:      "rate_limit_remaining",
		Help:      "Remaining core API requests in the current window.",
	})
)

func observe(op string, start time.Time, resp *github.Response, err error) {
	RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if resp != nil && resp.Rate.Limit > 0 {
		RateRemaining.Set(float64(resp.Rate.Remaining))
	}

	result := "success"
	switch {
	case err == nil:
	case statusCode(resp) == 404:
		result = "not_found"
	case isRateLimit(resp):
		result = "rate_limited"
	default:
		var rle *github.RateLimitError
		if errors.As(err, &rle) {
			result = "rate_limited"
		} else {
			result = "error"
		}
	}
	RequestsTotal.WithLabelValues(op, result).Inc()
}
