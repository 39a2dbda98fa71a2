// Command calculator-mcp runs the calculator MCP server over stdio or
// SSE. All configuration comes from CALC_* environment variables.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/evalmcp/calculator-mcp/internal/app"
	"github.com/evalmcp/calculator-mcp/internal/config"
)

func main() {
	// Stdout is the MCP wire on the stdio transport; all logging goes
	// to stderr.
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "calculator",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err != nil {
		logger.Fatal("invalid log level", "level", cfg.LogLevel)
	} else {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, logger).Run(ctx); err != nil {
		logger.Fatal("server exited", "err", err)
	}
	logger.Info("shutdown complete")
}
