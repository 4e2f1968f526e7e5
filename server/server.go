// Copyright 2025 Poiesic Systems
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

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/assistant"
	"github.com/poiesic/butler/core"
	"github.com/poiesic/butler/dispatch"
	"github.com/poiesic/butler/intent"
	"github.com/poiesic/butler/recipes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service is the butler surface served over HTTP.
type Service interface {
	ClassifyAndExtract(ctx context.Context, text string) (core.Classification, error)
	RetrieveDocument(ctx context.Context, query string) (core.RecipeMatch, error)
	Generate(ctx context.Context, parts ...ai.Part) (string, error)
	Ask(ctx context.Context, req assistant.Request) (assistant.Reply, error)
}

// Error codes returned in error bodies.
const (
	CodeBadRequest  = "bad_request"
	CodeNoMatch     = "no_match"
	CodeUnavailable = "unavailable"
	CodeExhausted   = "generation_exhausted"
	CodeInternal    = "internal"
)

// maxBodyBytes bounds request bodies, attachments included.
const maxBodyBytes = 8 << 20

// errorHandler tries to handle a service error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server routes HTTP requests to a Service.
type Server struct {
	svc           Service
	logger        *slog.Logger
	gatherer      prometheus.Gatherer
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	errorHandlers []errorHandler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// WithGatherer sets the registry served on /metrics.
// Default is prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithMetrics records request counts and latency by method, route and status.
func WithMetrics(requests *prometheus.CounterVec, latency *prometheus.HistogramVec) Option {
	return func(s *Server) {
		s.requests = requests
		s.latency = latency
	}
}

// New creates a server for svc.
func New(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		logger:   slog.Default().With("component", "server"),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(recipes.ErrNoMatch, http.StatusNotFound, CodeNoMatch),
		sentinelHandler(recipes.ErrRetrievalUnavailable, http.StatusServiceUnavailable, CodeUnavailable),
		sentinelHandler(intent.ErrClassificationUnavailable, http.StatusServiceUnavailable, CodeUnavailable),
		sentinelHandler(dispatch.ErrNoBackends, http.StatusServiceUnavailable, CodeUnavailable),
		sentinelHandler(dispatch.ErrGenerationExhausted, http.StatusBadGateway, CodeExhausted),
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(s.requestLog)
	r.Use(s.metrics)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/classify", s.classify)
		r.Post("/recipes/search", s.searchRecipes)
		r.Post("/generate", s.generate)
		r.Post("/ask", s.ask)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Intent core.Intent        `json:"intent"`
	Score  float32            `json:"score"`
	Slots  map[string]*string `json:"slots"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Recipe *core.Recipe `json:"recipe"`
	Score  float32      `json:"score"`
}

type attachment struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

type generateRequest struct {
	Prompt      string       `json:"prompt"`
	Attachments []attachment `json:"attachments,omitempty"`
}

type generateResponse struct {
	Text string `json:"text"`
}

type askRequest struct {
	UserID      string       `json:"user_id"`
	Text        string       `json:"text"`
	City        string       `json:"city,omitempty"`
	Latitude    *float64     `json:"latitude,omitempty"`
	Longitude   *float64     `json:"longitude,omitempty"`
	Attachments []attachment `json:"attachments,omitempty"`
}

type askResponse struct {
	Intent   core.Intent        `json:"intent"`
	Score    float32            `json:"score"`
	Slots    map[string]*string `json:"slots"`
	Text     string             `json:"text"`
	Degraded bool               `json:"degraded"`
}

type errorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Score   *float32 `json:"score,omitempty"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "text is required")
		return
	}

	c, err := s.svc.ClassifyAndExtract(r.Context(), req.Text)
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, classifyResponse{Intent: c.Intent, Score: c.Score, Slots: c.Slots})
}

func (s *Server) searchRecipes(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "query is required")
		return
	}

	match, err := s.svc.RetrieveDocument(r.Context(), req.Query)
	if errors.Is(err, recipes.ErrNoMatch) {
		score := match.Score
		writeJSON(w, http.StatusNotFound, errorResponse{Code: CodeNoMatch, Message: "no recipe matched the query", Score: &score})
		return
	}
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Recipe: match.Recipe, Score: match.Score})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "prompt is required")
		return
	}

	parts := append([]ai.Part{ai.TextPart(req.Prompt)}, toParts(req.Attachments)...)
	text, err := s.svc.Generate(r.Context(), parts...)
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{Text: text})
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" && len(req.Attachments) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "text is required")
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "latitude and longitude must be given together")
		return
	}

	areq := assistant.Request{UserID: req.UserID, Text: req.Text, Attachments: toParts(req.Attachments)}
	switch {
	case req.Latitude != nil:
		areq.Near = &assistant.Location{Latitude: *req.Latitude, Longitude: *req.Longitude, HasCoords: true, City: req.City}
	case req.City != "":
		areq.Near = &assistant.Location{City: req.City}
	}

	reply, err := s.svc.Ask(r.Context(), areq)
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{
		Intent:   reply.Intent,
		Score:    reply.Score,
		Slots:    reply.Slots,
		Text:     reply.Text,
		Degraded: reply.Degraded,
	})
}

func toParts(attachments []attachment) []ai.Part {
	parts := make([]ai.Part, 0, len(attachments))
	for _, a := range attachments {
		parts = append(parts, ai.BinaryPart(a.MIMEType, a.Data))
	}
	return parts
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("request failed", "err", err)
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
