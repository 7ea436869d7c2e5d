package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ava-labs/auditlog/pkg/client"
	"github.com/ava-labs/auditlog/pkg/utils"
)

// setup builds the config and logger shared by every command. The returned
// func flushes the logger.
func setup(c *cli.Context) (*Config, *zap.SugaredLogger, func(), error) {
	cfg, err := buildConfig(c)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build config: %w", err)
	}
	sugar, err := utils.NewSugaredLogger(cfg.Verbose)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	flush := func() {
		sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors
	}
	return cfg, sugar, flush, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func submit(c *cli.Context) error {
	if c.NArg() != 3 {
		return fmt.Errorf("expected VERB PAYLOAD_HASH REF_ID, got %d arguments", c.NArg())
	}
	cfg, sugar, flush, err := setup(c)
	if err != nil {
		return err
	}
	defer flush()

	ctx, stop := signalContext()
	defer stop()

	b, err := openBackend(ctx, cfg, sugar, nil)
	if err != nil {
		return err
	}
	defer b.Close()

	txID, err := newClient(cfg, b, sugar, nil).Submit(ctx, client.LogPayload{
		Verb:        c.Args().Get(0),
		PayloadHash: c.Args().Get(1),
		RefID:       c.Args().Get(2),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Submitted audit log entry. tx=%s\n", txID)
	return nil
}

func fetch(c *cli.Context) error {
	cfg, sugar, flush, err := setup(c)
	if err != nil {
		return err
	}
	defer flush()

	ctx, stop := signalContext()
	defer stop()

	b, err := openBackend(ctx, cfg, sugar, nil)
	if err != nil {
		return err
	}
	defer b.Close()

	records, err := newClient(cfg, b, sugar, nil).Fetch(ctx, client.WithLimit(c.Int("limit")))
	if err != nil {
		return err
	}

	output := c.String("output")
	if output == "" {
		return writeRecords(c.App.Writer, records)
	}
	if err := writeRecordsFile(output, records); err != nil {
		return err
	}
	sugar.Infow("wrote audit log snapshot", "path", output, "count", len(records))
	return nil
}

func writeRecords(w io.Writer, records []client.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeRecordsFile(path string, records []client.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := writeRecords(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
