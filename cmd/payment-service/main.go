package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fjod/go_shop/internal/config"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/payment"
	"github.com/fjod/go_shop/pkg/logger"
	"github.com/fjod/go_shop/pkg/shutdown"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "payment-service",
		Short: "Simulated payment provider serving the checkout session API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("GOSHOP_CONFIG"), "path to a YAML config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Log.Level, "payment-service")
	ctx, stop := shutdown.WithSignals(ctx)
	defer stop()

	var settlement payment.Settlement = payment.RandomSettlement{}
	if cfg.Simulator.Outcome != "" {
		settlement = payment.FixedSettlement(domain.PaymentStatus(cfg.Simulator.Outcome))
	}
	sim := payment.NewSimulator(cfg.Payment.APIKey, cfg.Simulator.PublicURL, settlement, log)

	srv := &http.Server{
		Addr:         cfg.Simulator.Addr,
		Handler:      otelhttp.NewHandler(sim.Routes(), "payment-simulator"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("payment simulator listening", "addr", cfg.Simulator.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down payment simulator")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
