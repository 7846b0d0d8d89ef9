// internal/httpserver/server.go
//
// HTTP server wiring for the breach terminal.
// Responsibilities:
//   - Router + middleware (request IDs, access log, panic recovery, metrics, CORS, timeouts).
//   - Public endpoints: "/health", "/metrics".
//   - Terminal endpoints (session cookie): "/", POST /decrypt, the feed and capture routes.
//
// Notes:
//   - Every visitor gets a signed session cookie on first contact; see session.go.
//   - The handler timeout is not applied to /stream, which lives as long as the client.

package httpserver

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/breach/assets"
	"github.com/robalobadob/breach/internal/config"
	"github.com/robalobadob/breach/internal/metrics"
	"github.com/robalobadob/breach/internal/noise"
	"github.com/robalobadob/breach/internal/puzzle"
	"github.com/robalobadob/breach/internal/store"
)

const (
	handlerTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server bundles router, session store, puzzle and feed.
type Server struct {
	r       *chi.Mux
	cfg     config.Config
	store   store.Store
	puzzle  *puzzle.Puzzle
	feed    *noise.Generator
	metrics *metrics.Metrics
	page    *template.Template
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, pz *puzzle.Puzzle, feed *noise.Generator, m *metrics.Metrics) (*Server, error) {
	page, err := assets.PageTemplate()
	if err != nil {
		return nil, err
	}
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     cfg,
		store:   st,
		puzzle:  pz,
		feed:    feed,
		metrics: m,
		page:    page,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)             // add X-Request-ID
	s.r.Use(chimw.RealIP)                // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger)) // request-scoped logger
	s.r.Use(accessLog)                   // one log line per request
	s.r.Use(chimw.Recoverer)             // recover from panics
	s.r.Use(s.metrics.Middleware)        // request counters
	s.r.Use(s.cors)                      // credentials-friendly CORS

	// Feed stream: bounded by the client connection, not by the handler timeout.
	s.r.With(s.withSession()).Get("/stream", s.handleStream)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(handlerTimeout))
		r.Use(jsonContentType)

		// --- diagnostics ---
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Handle("/metrics", s.metrics.Handler())

		// --- terminal ---
		r.Group(func(r chi.Router) {
			r.Use(s.withSession())
			r.Get("/", s.handlePage)
			r.Post("/decrypt", s.handleDecrypt)
			r.Get("/feed", s.handleFeed)
			r.Get("/capture", s.handleCaptureGet)
			r.Post("/capture", s.handleCaptureToggle)
		})
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s, nil
}

// Start serves HTTP on addr until ctx is cancelled, then shuts down gracefully.
// Open streams see their request context cancelled during shutdown.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: handlerTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the single configured origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one line per request through the request-scoped logger.
var accessLog = hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("reqId", chimw.GetReqID(r.Context())).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
})

// writeError sends {"error": code} with the given status.
func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `"}`))
}
