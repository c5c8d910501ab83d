/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api provides the HTTP API server for otelgate
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	gateHttp "github.com/carverauto/otelgate/pkg/http"
	"github.com/carverauto/otelgate/pkg/hotcache"
	"github.com/carverauto/otelgate/pkg/livetail"
	"github.com/carverauto/otelgate/pkg/logger"
	"github.com/carverauto/otelgate/pkg/models"
	"github.com/carverauto/otelgate/pkg/pipeline"
	"github.com/carverauto/otelgate/pkg/records"
	"github.com/carverauto/otelgate/pkg/stats"
)

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	defaultTimeout      = 10 * time.Second
)

// APIServer exposes the ingest, query, export and live tail surfaces.
type APIServer struct {
	router     *mux.Router
	corsConfig models.CORSConfig
	logger     logger.Logger

	cache      *hotcache.Manager
	hub        *livetail.Hub
	sender     pipeline.Sender
	builder    *records.Builder
	stats      *stats.Aggregator
	defaultEnv string
}

// NewAPIServer creates a new API server instance with the given configuration
func NewAPIServer(config models.CORSConfig, options ...func(server *APIServer)) *APIServer {
	s := &APIServer{
		router:     mux.NewRouter(),
		corsConfig: config,
		builder:    records.NewBuilder(),
		sender:     pipeline.NopSender{},
		defaultEnv: "default",
	}

	for _, o := range options {
		o(s)
	}

	if s.logger == nil {
		s.logger = logger.NewTestLogger()
	}

	s.setupRoutes()

	return s
}

// WithCache attaches the hot cache manager.
func WithCache(m *hotcache.Manager) func(*APIServer) {
	return func(server *APIServer) {
		server.cache = m
	}
}

// WithHub attaches the live tail hub.
func WithHub(h *livetail.Hub) func(*APIServer) {
	return func(server *APIServer) {
		server.hub = h
	}
}

// WithSender attaches the delivery pipeline sender.
func WithSender(sender pipeline.Sender) func(*APIServer) {
	return func(server *APIServer) {
		server.sender = sender
	}
}

// WithBuilder overrides the record builder (tests pin its clock).
func WithBuilder(b *records.Builder) func(*APIServer) {
	return func(server *APIServer) {
		server.builder = b
	}
}

// WithStats attaches the per-service aggregate store.
func WithStats(a *stats.Aggregator) func(*APIServer) {
	return func(server *APIServer) {
		server.stats = a
	}
}

// WithLogger sets the server logger.
func WithLogger(log logger.Logger) func(*APIServer) {
	return func(server *APIServer) {
		server.logger = log
	}
}

// WithDefaultEnvironment sets the environment used when requests carry no
// X-Environment header.
func WithDefaultEnvironment(env string) func(*APIServer) {
	return func(server *APIServer) {
		if env != "" {
			server.defaultEnv = env
		}
	}
}

// setupRoutes configures the HTTP routes for the API server.
func (s *APIServer) setupRoutes() {
	s.router.Use(gateHttp.CORSMiddleware(s.corsConfig))

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/v1/logs", s.handleIngestLogs).Methods("POST")
	s.router.HandleFunc("/v1/traces", s.handleIngestTraces).Methods("POST")
	s.router.HandleFunc("/v1/metrics", s.handleIngestMetrics).Methods("POST")

	s.router.HandleFunc("/api/query", s.handleQuery).Methods("GET", "POST")
	s.router.HandleFunc("/api/stats", s.handleStats).Methods("GET")
	s.router.HandleFunc("/api/stream", s.handleStream).Methods("GET")

	s.router.HandleFunc("/export/logs", s.exportHandler("logs")).Methods("GET")
	s.router.HandleFunc("/export/traces", s.exportHandler("traces")).Methods("GET")
	s.router.HandleFunc("/export/metrics/gauge", s.exportHandler("gauge")).Methods("GET")
	s.router.HandleFunc("/export/metrics/sum", s.exportHandler("sum")).Methods("GET")
}

// Router exposes the handler for tests and embedding.
func (s *APIServer) Router() http.Handler {
	return s.router
}

// environment resolves the cache environment key for a request.
func (s *APIServer) environment(r *http.Request) string {
	if env := r.Header.Get("X-Environment"); env != "" {
		return env
	}

	return s.defaultEnv
}

func (s *APIServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if err := s.encodeJSONResponse(w, map[string]string{"status": "ok"}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode health response")
	}
}

// encodeJSONResponse encodes a response as JSON
func (*APIServer) encodeJSONResponse(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")

	return json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errResponse := models.ErrorResponse{
		Message: message,
		Status:  statusCode,
	}

	if err := json.NewEncoder(w).Encode(errResponse); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}

// Start starts the API server on the specified address
func (s *APIServer) Start(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	s.logger.Info().Str("addr", addr).Msg("API server listening")

	return srv.ListenAndServe()
}

// requestContext caps handler work at the default timeout.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), defaultTimeout)
}
