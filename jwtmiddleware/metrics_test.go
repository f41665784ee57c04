package jwtmiddleware

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/oauth-demo/core"
)

func Test_PrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)

	metrics.ObserveTokenCheck(ResultSuccess, 2*time.Millisecond)
	metrics.ObserveTokenCheck(ResultSuccess, 3*time.Millisecond)
	metrics.ObserveTokenCheck(ResultMissing, time.Microsecond)

	expected := `
# HELP oauth_demo_token_checks_total Bearer token checks by result.
# TYPE oauth_demo_token_checks_total counter
oauth_demo_token_checks_total{result="missing"} 1
oauth_demo_token_checks_total{result="success"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "oauth_demo_token_checks_total"))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.duration))

	t.Run("registering twice fails", func(t *testing.T) {
		_, err := NewPrometheusMetrics(reg)
		assert.Error(t, err)
	})
}

func Test_resultOf(t *testing.T) {
	testCases := []struct {
		principal any
		err       error
		want      string
	}{
		{principal: "user", want: ResultSuccess},
		{want: ResultAnonymous},
		{err: ErrJWTMissing, want: ResultMissing},
		{err: fmt.Errorf("%w: %w", ErrTokenExtraction, errors.New("bad")), want: ResultMalformedHeader},
		{err: &invalidError{details: core.NewValidationError(core.ErrorCodeJWKSFetchFailed, "x", nil)}, want: ResultKeysUnavailable},
		{err: &invalidError{details: core.NewValidationError(core.ErrorCodeTokenExpired, "x", nil)}, want: ResultInvalid},
		{err: errors.New("boom"), want: ResultError},
	}

	for _, testCase := range testCases {
		t.Run(testCase.want, func(t *testing.T) {
			assert.Equal(t, testCase.want, resultOf(testCase.principal, testCase.err))
		})
	}
}
