// Package main implements the aird CLI: the pipeline worker the external
// orchestrator drives, plus local operator commands (ingest, run,
// promote, query).
package main

import (
	"log/slog"
	"os"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("aird exited with error", "err", err)
		os.Exit(1)
	}
}
