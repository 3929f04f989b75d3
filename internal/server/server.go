// Package server exposes the search pipeline over HTTP. Searches stream as
// server-sent events, one JSON event per frame.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/carfinder/internal/listing"
	"github.com/hyperifyio/carfinder/internal/metrics"
	"github.com/hyperifyio/carfinder/internal/search"
)

// maxBodyBytes bounds a search request body.
const maxBodyBytes = 64 << 10

// Runner starts a search. *search.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, c listing.SearchCriteria) <-chan search.Event
}

// Server holds the handlers' dependencies.
type Server struct {
	Runner  Runner
	Metrics *metrics.Metrics
	// CORSOrigins lists allowed browser origins; "*" allows any.
	CORSOrigins []string
	Version     string
}

type errorResponse struct {
	Error string `json:"error"`
}

type banner struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	origins := s.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleBanner)
	r.Get("/health", s.handleHealth)
	r.Post("/api/search", s.handleSearch)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}
	return r
}

// requestLogger tags each request with an id and a logger carrying it, and
// logs the request when it ends.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		logger := log.With().Str("request_id", id).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("took", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleBanner(w http.ResponseWriter, _ *http.Request) {
	v := s.Version
	if v == "" {
		v = "2.0"
	}
	writeJSON(w, http.StatusOK, banner{
		Status:    "ok",
		Message:   "CarFinder Pro API",
		Version:   v,
		Endpoints: []string{"/api/search"},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var c listing.SearchCriteria
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("decode criteria: %v", err)})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)

	if s.Metrics != nil {
		s.Metrics.Searches.WithLabelValues(string(c.EffectiveBreadth())).Inc()
		s.Metrics.ActiveStreams.Inc()
		defer s.Metrics.ActiveStreams.Dec()
	}
	logger.Info().Str("keyword", c.Keyword).Str("location", c.Location).Str("breadth", string(c.EffectiveBreadth())).Msg("search started")

	results := 0
	for ev := range s.Runner.Run(ctx, c) {
		if ev.Type == search.EventResult {
			results++
		}
		if err := writeEvent(w, rc, ev); err != nil {
			// The client is gone; cancelling stops the run before its
			// next network call.
			cancel()
			logger.Debug().Err(err).Msg("stream closed by client")
			return
		}
	}
	logger.Info().Int("results", results).Bool("cancelled", errors.Is(ctx.Err(), context.Canceled)).Msg("search finished")
}

func writeEvent(w io.Writer, rc *http.ResponseController, ev search.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
