package utils

import (
	"fmt"

	"go.uber.org/zap"
)

// ServiceName is attached to every log line produced by NewSugaredLogger.
const ServiceName = "auditlog"

// NewSugaredLogger creates a sugared logger based on the verbose flag.
// Verbose selects the development config (debug level, console encoding);
// otherwise a JSON production logger is returned.
func NewSugaredLogger(verbose bool) (*zap.SugaredLogger, error) {
	build := zap.NewProduction
	kind := "production"
	if verbose {
		build = zap.NewDevelopment
		kind = "development"
	}

	l, err := build()
	if err != nil {
		return nil, fmt.Errorf("failed to create %s logger: %w", kind, err)
	}
	return l.Sugar().With("service", ServiceName), nil
}
