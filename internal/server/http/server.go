// Package http is the read-only HTTP front end: metrics, charts and the map.
package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"visioniq.io/visioniq/pkg/log"
	"visioniq.io/visioniq/pkg/options"
)

// Reports renders history views. *report.Renderer implements it.
type Reports interface {
	RangeChart(w io.Writer) error
	ChargeChart(w io.Writer) error
	MileageChart(w io.Writer) error
	Map(w io.Writer) error
}

// Config holds the handlers and settings for a Server.
type Config struct {
	Options *options.HttpOptions
	Metrics http.Handler
	Reports Reports

	// Ready backs /readyz. Nil always reports ready.
	Ready func() error
}

type Server struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          log.Logger
}

func NewServer(cfg Config) *Server {
	logger := log.WithName("http")

	return &Server{
		server: &http.Server{
			Addr:              cfg.Options.Addr(),
			Handler:           newRouter(cfg, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: cfg.Options.ShutdownTimeout,
		logger:          logger,
	}
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func newRouter(cfg Config, logger log.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(accessLog(logger))

	get := []string{http.MethodGet, http.MethodHead}

	r.Handle("/metrics", cfg.Metrics).Methods(get...)
	r.HandleFunc("/map", render(logger, "text/html; charset=utf-8", cfg.Reports.Map)).Methods(get...)
	r.HandleFunc("/mileage.png", render(logger, "image/png", cfg.Reports.MileageChart)).Methods(get...)
	r.HandleFunc("/range.png", render(logger, "image/png", cfg.Reports.RangeChart)).Methods(get...)
	r.HandleFunc("/charge.png", render(logger, "image/png", cfg.Reports.ChargeChart)).Methods(get...)

	// Liveness Probe
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "ok")
	}).Methods(get...)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(); err != nil {
				writeText(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		writeText(w, http.StatusOK, "ok")
	}).Methods(get...)

	return r
}

// render buffers the whole body so a failure can still become a 500.
func render(logger log.Logger, contentType string, fn func(io.Writer) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := fn(&buf); err != nil {
			logger.Error(err, "Failed to render report", "path", r.URL.Path)
			writeText(w, http.StatusInternalServerError, "failed to render "+r.URL.Path)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-store")
		_, _ = buf.WriteTo(w)
	}
}

func writeText(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(msg))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func accessLog(logger log.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("Request served", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
		})
	}
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP Server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP Server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
