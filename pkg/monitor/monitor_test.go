package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ava-labs/auditlog/pkg/metrics"
)

type mockCounter struct {
	mock.Mock
}

func (m *mockCounter) TotalCount(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func testConfig() Config {
	return Config{
		Interval:     10 * time.Millisecond,
		ReadTimeout:  time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}
}

func newMetrics(t *testing.T) (*metrics.Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	return m, reg
}

func TestStart_UpdatesGaugeAndCancels(t *testing.T) {
	t.Parallel()
	m, reg := newMetrics(t)
	counter := &mockCounter{}

	polled := make(chan struct{}, 1)
	counter.
		On("TotalCount", mock.Anything).
		Run(func(_ mock.Arguments) {
			select {
			case polled <- struct{}{}:
			default:
			}
		}).
		Return(uint64(7), nil)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Start(ctx, counter, m, testConfig(), zaptest.NewLogger(t).Sugar())
	}()

	select {
	case <-polled:
	case <-time.After(500 * time.Millisecond):
		require.Fail(t, "timeout waiting for poll")
	}

	require.Eventually(t, func() bool {
		return gaugeValue(reg, "auditlog_ledger_total_entries") == 7
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		require.Fail(t, "timeout waiting for monitor to exit")
	}
}

func TestStart_RetriesThenCountsPollError(t *testing.T) {
	t.Parallel()
	m, reg := newMetrics(t)
	counter := &mockCounter{}
	counter.
		On("TotalCount", mock.Anything).
		Return(uint64(0), errors.New("rpc unavailable")).
		Times(3) // initial try + 2 retries
	counter.
		On("TotalCount", mock.Anything).
		Return(uint64(3), nil)

	cfg := testConfig()
	cfg.Interval = time.Hour
	core, logs := observer.New(zapcore.WarnLevel)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Start(ctx, counter, m, cfg, zap.New(core).Sugar())
	}()

	expected := `
# HELP auditlog_errors_total Total errors by type
# TYPE auditlog_errors_total counter
auditlog_errors_total{type="poll"} 1
`
	require.Eventually(t, func() bool {
		return testutil.GatherAndCompare(reg, strings.NewReader(expected), "auditlog_errors_total") == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	counter.AssertNumberOfCalls(t, "TotalCount", 3)

	warned := logs.FilterMessage("ledger count poll failed").All()
	require.Len(t, warned, 1)
	assert.Contains(t, warned[0].ContextMap()["error"], "rpc unavailable")
}

func TestStart_RecoversAfterFailedPoll(t *testing.T) {
	t.Parallel()
	m, reg := newMetrics(t)
	counter := &mockCounter{}
	counter.
		On("TotalCount", mock.Anything).
		Return(uint64(0), errors.New("rpc unavailable")).
		Times(3)
	counter.
		On("TotalCount", mock.Anything).
		Return(uint64(11), nil)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Start(ctx, counter, m, testConfig(), nil)
	}()

	require.Eventually(t, func() bool {
		return gaugeValue(reg, "auditlog_ledger_total_entries") == 11
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestStart_NilMetrics(t *testing.T) {
	t.Parallel()
	counter := &mockCounter{}
	counter.On("TotalCount", mock.Anything).Return(uint64(1), nil)

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Millisecond)
	defer cancel()
	require.NoError(t, Start(ctx, counter, nil, testConfig(), nil))
	counter.AssertCalled(t, "TotalCount", mock.Anything)
}

func TestStart_InvalidInterval(t *testing.T) {
	t.Parallel()
	err := Start(t.Context(), &mockCounter{}, nil, Config{}, nil)
	require.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	assert.Positive(t, cfg.Interval)
	assert.Positive(t, cfg.ReadTimeout)
	assert.GreaterOrEqual(t, cfg.MaxRetries, 0)
}

// gaugeValue reads the named gauge from reg, reporting -1 if it is absent.
func gaugeValue(reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return -1
}
