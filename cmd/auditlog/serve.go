package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/auditlog/pkg/api"
	"github.com/ava-labs/auditlog/pkg/metrics"
	"github.com/ava-labs/auditlog/pkg/monitor"
)

func serve(c *cli.Context) error {
	cfg, sugar, flush, err := setup(c)
	if err != nil {
		return err
	}
	defer flush()

	sugar.Infow("config",
		"verbose", cfg.Verbose,
		"backend", cfg.Backend,
		"rpcURL", cfg.RPCURL,
		"chainID", cfg.ChainID,
		"storeAddress", cfg.Client.StoreAddress,
		"accountAlias", cfg.Client.AccountAlias,
		"readConcurrency", cfg.Client.ReadConcurrency,
		"listenAddr", cfg.ListenAddr,
		"pollInterval", cfg.PollInterval,
		"metricsHost", cfg.MetricsHost,
		"metricsPort", cfg.MetricsPort,
		"environment", cfg.Environment,
		"region", cfg.Region,
		"cloudProvider", cfg.CloudProvider,
	)

	ctx, stop := signalContext()
	defer stop()

	// Initialize Prometheus metrics with labels for multi-instance filtering
	registry := prometheus.NewRegistry()
	m, err := metrics.NewWithLabels(registry, metrics.Labels{
		EVMChainID:    cfg.ChainID,
		Backend:       cfg.Backend,
		Environment:   cfg.Environment,
		Region:        cfg.Region,
		CloudProvider: cfg.CloudProvider,
	})
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	b, err := openBackend(ctx, cfg, sugar, m)
	if err != nil {
		return err
	}
	defer b.Close()

	var monitored monitor.Counter
	if cfg.Client.StoreAddress == "" {
		sugar.Warn("no store target configured; ledger count monitor disabled")
	} else {
		monitored, err = b.stores.ResolveStore(ctx, cfg.Client.StoreAddress)
		if err != nil {
			return fmt.Errorf("failed to resolve monitored store: %w", err)
		}
	}

	metricsServer := metrics.NewServer(cfg.MetricsAddr(), registry)
	metricsErrCh := metricsServer.Start()
	if cfg.MetricsHost == "" {
		sugar.Infof("metrics server listening on http://0.0.0.0:%d/metrics", cfg.MetricsPort)
	} else {
		sugar.Infof("metrics server listening on http://%s/metrics", cfg.MetricsAddr())
	}

	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	apiServer := api.NewServer(cfg.ListenAddr, newClient(cfg, b, sugar, m), m, sugar)
	apiErrCh := apiServer.Start()

	g, gctx := errgroup.WithContext(ctx)

	if monitored != nil {
		g.Go(func() error {
			return monitor.Start(gctx, monitored, m, cfg.MonitorConfig(), sugar)
		})
	}

	g.Go(func() error {
		return waitServer(gctx, "api server", apiErrCh)
	})
	g.Go(func() error {
		return waitServer(gctx, "metrics server", metricsErrCh)
	})

	// Wait for first error or completion from any goroutine
	err = g.Wait()

	sugar.Info("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if shutdownErr := apiServer.Shutdown(shutdownCtx); shutdownErr != nil {
		sugar.Warnw("api server shutdown error", "error", shutdownErr)
	}
	if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
		sugar.Warnw("metrics server shutdown error", "error", shutdownErr)
	}

	sugar.Info("shutdown complete")
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// waitServer blocks until ctx is done or the server reports a failure.
func waitServer(ctx context.Context, name string, errCh <-chan error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("%s error: %w", name, err)
		}
		<-ctx.Done()
		return ctx.Err()
	}
}
