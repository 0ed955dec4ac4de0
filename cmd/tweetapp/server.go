package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tweetapp/tweetapp/internal/config"
	"github.com/tweetapp/tweetapp/pkg/api/apitest"
)

func mockServerCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run the simulated backend over HTTP",
		Long: `Run the in-memory backend simulator as a real HTTP server.

It speaks the same envelope contract as the production API, seeds the
standard fixture data, broadcasts post changes on /ws/updates and
exposes Prometheus metrics on /metrics.

Examples:
  tweetapp mock-server
  tweetapp mock-server --listen=:9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := cfg.Logger()
			if listen != "" {
				cfg.Listen = listen
			}

			mem := apitest.NewMemory(apitest.WithLatency(50 * time.Millisecond))
			backend := apitest.NewServer(mem, apitest.WithServerLogger(log))

			r := chi.NewRouter()
			r.Handle("/metrics", promhttp.Handler())
			r.Mount("/", backend.Handler())

			srv := &http.Server{
				Addr:              cfg.Listen,
				Handler:           r,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("mock server listening", "addr", cfg.Listen)
				errCh <- srv.ListenAndServe()
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case sig := <-stop:
				log.Info("shutting down", "signal", sig.String())
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Bind address (overrides TWEETAPP_LISTEN)")

	return cmd
}
