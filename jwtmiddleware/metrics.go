package jwtmiddleware

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/oauth-demo/core"
)

// Token check outcomes reported to Metrics and set on the span.
const (
	ResultSuccess         = "success"
	ResultAnonymous       = "anonymous"
	ResultMissing         = "missing"
	ResultMalformedHeader = "malformed_header"
	ResultInvalid         = "invalid"
	ResultKeysUnavailable = "keys_unavailable"
	ResultError           = "error"
)

var timeNow = time.Now

// Metrics records the outcome of every token check.
type Metrics interface {
	ObserveTokenCheck(result string, duration time.Duration)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) ObserveTokenCheck(string, time.Duration) {}

// PrometheusMetrics exports oauth_demo_token_checks_total and
// oauth_demo_token_check_duration_seconds, both labelled by result.
type PrometheusMetrics struct {
	checks   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusMetrics registers the collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oauth_demo",
			Name:      "token_checks_total",
			Help:      "Bearer token checks by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oauth_demo",
			Name:      "token_check_duration_seconds",
			Help:      "Time spent extracting and validating bearer tokens.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.checks, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) ObserveTokenCheck(result string, duration time.Duration) {
	m.checks.WithLabelValues(result).Inc()
	m.duration.WithLabelValues(result).Observe(duration.Seconds())
}

func resultOf(principal any, err error) string {
	if err == nil {
		if principal == nil {
			return ResultAnonymous
		}
		return ResultSuccess
	}

	var validationErr *core.ValidationError
	switch {
	case errors.Is(err, ErrJWTMissing):
		return ResultMissing
	case errors.Is(err, ErrTokenExtraction):
		return ResultMalformedHeader
	case errors.As(err, &validationErr) && validationErr.Code == core.ErrorCodeJWKSFetchFailed:
		return ResultKeysUnavailable
	case errors.Is(err, ErrJWTInvalid):
		return ResultInvalid
	default:
		return ResultError
	}
}
