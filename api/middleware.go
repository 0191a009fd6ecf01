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

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/cors"
)

type requestIDKey struct{}

// RequestID returns the request id assigned by RequestMiddleware
func RequestID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(requestIDKey{}).(uuid.UUID)
	return id, ok
}

type requestMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newRequestMetrics(reg prometheus.Registerer) *requestMetrics {
	factory := promauto.With(reg)
	return &requestMetrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vote_inspector_api_requests_total",
				Help: "API requests by route and status",
			},
			[]string{"route", "status"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vote_inspector_api_request_duration_seconds",
				Help:    "API request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// RequestMiddleware assigns a request id, logs the start and end of each
// request and records its status and latency. It must be the outermost
// middleware of the router so the route pattern is known when it returns
func RequestMiddleware(m *requestMetrics, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.New()
			logger.Debug("starting request",
				"endpoint", r.URL.Path,
				"request_id", requestID,
			)
			t := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(
				context.WithValue(r.Context(), requestIDKey{}, requestID),
			))

			latency := time.Since(t)
			httpStatus := ww.Status()
			if httpStatus == 0 {
				httpStatus = http.StatusOK
			}
			logger.Info("ending request",
				"method", r.Method,
				"query_path", r.URL.Path,
				"request_id", requestID,
				"latency", latency,
				"status_code", httpStatus,
			)

			// Unmatched paths share one label
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			statusTxt := "failure"
			switch {
			case httpStatus < 400:
				statusTxt = "success"
			case httpStatus < 500:
				statusTxt = "failure_4xx"
			}
			m.requests.WithLabelValues(route, statusTxt).Inc()
			m.latency.WithLabelValues(route).Observe(latency.Seconds())
		})
	}
}

// CorsMiddleware allows cross-origin reads and JSON posts from any origin
func CorsMiddleware(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:       []string{"Content-Type"},
		AllowCredentials:     false,
		OptionsSuccessStatus: http.StatusNoContent,
	}).Handler(next)
}
