// Package monitor polls a ledger's entry count and publishes it as a gauge.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ava-labs/auditlog/pkg/metrics"
)

// Counter is the part of ledger.Store the monitor reads.
type Counter interface {
	TotalCount(ctx context.Context) (uint64, error)
}

// Start polls counter once immediately and then every cfg.Interval, recording
// the result with m.UpdateLedgerTotal.
//
// A poll that still fails after cfg.MaxRetries retries is logged and counted
// as a poll error; the monitor keeps running. Returns nil on context
// cancellation.
func Start(
	ctx context.Context,
	counter Counter,
	m *metrics.Metrics,
	cfg Config,
	log *zap.SugaredLogger,
) error {
	if cfg.Interval <= 0 {
		return errors.New("monitor interval must be positive")
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = cfg.Interval
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	t := time.NewTicker(cfg.Interval)
	defer t.Stop()

	for {
		total, err := poll(ctx, counter, cfg)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			m.IncError(metrics.ErrTypePoll)
			log.Warnw("ledger count poll failed", "error", err)
		default:
			m.UpdateLedgerTotal(total, time.Now().Unix())
			log.Debugw("ledger count polled", "total", total)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func poll(ctx context.Context, counter Counter, cfg Config) (uint64, error) {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		readCtx, cancel := context.WithTimeout(ctx, cfg.ReadTimeout)
		total, err := counter.TotalCount(readCtx)
		cancel()
		if err == nil {
			return total, nil
		}
		lastErr = err

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(cfg.RetryBackoff):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
	}
	return 0, fmt.Errorf("total count failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}
