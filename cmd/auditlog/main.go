package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const defaultEnvFile = ".env"

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:   "auditlog",
		Usage:  "Append to and read from an append-only audit log",
		Flags:  globalFlags(),
		Before: loadEnvFile,
		Commands: []*cli.Command{
			{
				Name:      "submit",
				Usage:     "Submit an audit log entry",
				ArgsUsage: "VERB PAYLOAD_HASH REF_ID",
				Flags:     ledgerFlags(),
				Action:    submit,
			},
			{
				Name:   "fetch",
				Usage:  "Fetch audit log entries as a JSON array",
				Flags:  append(ledgerFlags(), fetchFlags()...),
				Action: fetch,
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API, metrics and the ledger count monitor",
				Flags:  append(append(ledgerFlags(), metricsFlags()...), serveFlags()...),
				Action: serve,
			},
			{
				Name:   "deploy",
				Usage:  "Deploy the AuditLog contract",
				Flags:  append(ledgerFlags(), deployFlags()...),
				Action: deployContract,
			},
		},
	}
}

// loadEnvFile loads --env-file into the process environment before command
// flags are parsed, so their EnvVars see it. Existing variables win. A missing
// default file is ignored; a missing explicit file is an error.
func loadEnvFile(c *cli.Context) error {
	path := c.String("env-file")
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !c.IsSet("env-file") {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
