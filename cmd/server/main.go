// Command server runs the cash register ledger API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/iho/cashledger/internal/infrastructure/config"
	"github.com/iho/cashledger/internal/infrastructure/logger"
)

const serviceName = "cashledger"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: configuration: %v\n", serviceName, err)
		os.Exit(2)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: serviceName})
	if err := serve(cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

// serve runs the app until SIGINT or SIGTERM.
func serve(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer a.close()

	return a.run(ctx)
}
