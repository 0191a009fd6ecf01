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

// Package api serves the inspector over HTTP: transaction inspection,
// governance action ID conversion, the on-chain data proxy, the pending
// transaction hand-over and prometheus metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/blinklabs-io/vote-inspector/committee"
	"github.com/blinklabs-io/vote-inspector/koios"
	"github.com/blinklabs-io/vote-inspector/pending"
	"github.com/blinklabs-io/vote-inspector/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultListenAddress   = ":8080"
	DefaultShutdownTimeout = 10 * time.Second

	// Inspection requests carry a transaction hex, which stays far below this
	maxRequestBodySize = 1 << 20
)

// Server is the HTTP API server
type Server struct {
	listenAddress   string
	shutdownTimeout time.Duration
	networkId       uint
	logger          *slog.Logger
	registry        *prometheus.Registry
	pipeline        *pipeline.Pipeline
	koios           *koios.Client
	pending         *pending.Store
	members         *committee.Registry
	handler         http.Handler
}

type ServerOptionFunc func(*Server)

func WithListenAddress(addr string) ServerOptionFunc {
	return func(s *Server) {
		s.listenAddress = addr
	}
}

func WithShutdownTimeout(timeout time.Duration) ServerOptionFunc {
	return func(s *Server) {
		if timeout > 0 {
			s.shutdownTimeout = timeout
		}
	}
}

// WithNetwork sets the network used by the proxy when none is requested
func WithNetwork(networkId uint) ServerOptionFunc {
	return func(s *Server) {
		s.networkId = networkId
	}
}

func WithLogger(logger *slog.Logger) ServerOptionFunc {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithPromRegistry sets the registry that API metrics are registered on and
// that /metrics serves
func WithPromRegistry(registry *prometheus.Registry) ServerOptionFunc {
	return func(s *Server) {
		s.registry = registry
	}
}

// WithPipeline sets the inspection pipeline. Its metrics should be
// registered on the server registry
func WithPipeline(p *pipeline.Pipeline) ServerOptionFunc {
	return func(s *Server) {
		s.pipeline = p
	}
}

func WithKoiosClient(c *koios.Client) ServerOptionFunc {
	return func(s *Server) {
		s.koios = c
	}
}

func WithPendingStore(store *pending.Store) ServerOptionFunc {
	return func(s *Server) {
		s.pending = store
	}
}

func WithCommittee(members *committee.Registry) ServerOptionFunc {
	return func(s *Server) {
		s.members = members
	}
}

// NewServer returns a server with defaults for every dependency that was not
// provided
func NewServer(opts ...ServerOptionFunc) *Server {
	s := &Server{
		listenAddress:   DefaultListenAddress,
		shutdownTimeout: DefaultShutdownTimeout,
		networkId:       1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "api")
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.pipeline == nil {
		s.pipeline = pipeline.New(
			pipeline.WithLogger(s.logger),
			pipeline.WithPromRegistry(s.registry),
		)
	}
	if s.koios == nil {
		s.koios = koios.NewClient(koios.WithLogger(s.logger))
	}
	if s.pending == nil {
		s.pending = pending.NewStore(pending.WithLogger(s.logger))
	}
	if s.members == nil {
		s.members = committee.NewRegistry(nil)
	}
	s.handler = s.router()
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestMiddleware(newRequestMetrics(s.registry), s.logger))
	r.Use(middleware.Recoverer)
	r.Use(CorsMiddleware)
	r.Route("/api", func(r chi.Router) {
		r.Post("/inspect", s.handleInspect)
		r.Get("/gov-id", s.handleGovIDEncode)
		r.Get("/gov-id/{id}", s.handleGovIDDecode)
		r.Get("/proxy", s.handleProxy)
		r.Options("/proxy", s.handleProxyOptions)
		r.Post("/pending", s.handlePendingPut)
		r.Get("/pending/{key}", s.handlePendingTake)
		r.Get("/members", s.handleMembers)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves on the configured address until ctx is cancelled, then shuts
// down gracefully
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddress, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Start on an existing listener. The listener is closed on return
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		// The proxy runs three upstream queries
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	s.logger.Info("starting api server at " + listener.Addr().String())
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(listener)
	}()
	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.logger.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		s.shutdownTimeout,
	)
	defer cancel()
	//nolint:contextcheck
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	if err := <-errChan; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
