// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/vote-inspector/api"
	"github.com/blinklabs-io/vote-inspector/internal/config"
	"github.com/blinklabs-io/vote-inspector/koios"
	"github.com/blinklabs-io/vote-inspector/pending"
	"github.com/blinklabs-io/vote-inspector/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errNoConfig
			}
			return serveRun(cmd.Context(), cfg, slog.Default())
		},
	}
}

func serveRun(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	networkId, err := cfg.NetworkID()
	if err != nil {
		return err
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	opts, err := pipelineOptions(cfg, logger, registry, cfg.SelectedMember)
	if err != nil {
		return err
	}
	server := api.NewServer(
		api.WithListenAddress(cfg.ListenAddress()),
		api.WithShutdownTimeout(cfg.ShutdownTimeout),
		api.WithNetwork(networkId),
		api.WithLogger(logger),
		api.WithPromRegistry(registry),
		api.WithPipeline(pipeline.New(opts...)),
		api.WithCommittee(cfg.Committee()),
		api.WithKoiosClient(koios.NewClient(
			koios.WithMainnetURL(cfg.KoiosMainnetURL),
			koios.WithPreprodURL(cfg.KoiosPreprodURL),
			koios.WithTimeout(cfg.HTTPTimeout),
			koios.WithLogger(logger),
		)),
		api.WithPendingStore(pending.NewStore(
			pending.WithTTL(cfg.PendingTTL),
			pending.WithLogger(logger),
		)),
	)

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		ctx,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	g, gctx := errgroup.WithContext(signalCtx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	if cfg.MetricsPort != 0 && cfg.MetricsPort != cfg.Port {
		g.Go(func() error {
			return serveMetrics(gctx, cfg, registry, logger)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete", "component", programName)
	return nil
}

// serveMetrics runs a separate prometheus listener until ctx is done
func serveMetrics(
	ctx context.Context,
	cfg *config.Config,
	registry *prometheus.Registry,
	logger *slog.Logger,
) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	addr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
	logger.Info(
		"serving prometheus metrics on "+addr,
		"component", programName,
	)
	metricsServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		errChan <- metricsServer.ListenAndServe()
	}()
	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start metrics listener: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.ShutdownTimeout,
	)
	defer cancel()
	//nolint:contextcheck
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}
	<-errChan
	return nil
}
