// Package server exposes the annotation service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/relmark/internal/metrics"
	"github.com/ppiankov/relmark/internal/pipeline"
	"github.com/ppiankov/relmark/internal/protocol"
	"github.com/ppiankov/relmark/internal/schema"
	"github.com/ppiankov/relmark/internal/worker"
)

const (
	defaultReadHeaderTimeout       = 10 * time.Second
	defaultReadTimeout             = 30 * time.Second
	defaultWriteTimeout            = 60 * time.Second
	defaultIdleTimeout             = 120 * time.Second
	defaultMaxBodySize       int64 = 10 << 20
	shutdownTimeout                = 10 * time.Second
	limiterIdle                    = 10 * time.Minute

	contentTypeJSON = "application/json"
	requestIDHeader = "X-Request-ID"
)

// Processor runs one request body through the service
type Processor interface {
	Process(ctx context.Context, in *pipeline.Input) *pipeline.Result
}

// Option configures a Server
type Option func(*Server)

// WithRateLimit limits requests per client address; rps <= 0 disables limiting
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = worker.NewLimiter(rps, burst)
		} else {
			s.limiter = nil
		}
	}
}

// WithMaxBodySize caps request bodies
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodySize = n
		}
	}
}

// WithLogger sets the request logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server serves /execute, /metadata, /schema, /healthz and /metrics
type Server struct {
	processor   Processor
	metadata    protocol.Metadata
	limiter     *worker.Limiter
	maxBodySize int64
	logger      *slog.Logger
	handler     http.Handler
}

// New creates a server around a processor and the metadata it advertises
func New(processor Processor, metadata protocol.Metadata, opts ...Option) *Server {
	s := &Server{
		processor:   processor,
		metadata:    metadata,
		maxBodySize: defaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /execute", s.instrument("/execute", s.limit(http.HandlerFunc(s.handleExecute))))
	mux.Handle("GET /metadata", s.instrument("/metadata", http.HandlerFunc(s.handleMetadata)))
	mux.Handle("GET /schema", s.instrument("/schema", http.HandlerFunc(s.handleSchema)))
	mux.Handle("GET /healthz", s.instrument("/healthz", http.HandlerFunc(handleHealth)))
	mux.Handle("GET /metrics", metrics.Handler())
	return s.requestID(mux)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if s.limiter != nil {
		go s.pruneLoop(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(limiterIdle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Prune(limiterIdle); n > 0 {
				s.logger.Debug("pruned idle clients", "count", n)
			}
		}
	}
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge,
				protocol.ErrorEnvelope(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)))
			return
		}
		writeJSON(w, http.StatusBadRequest, protocol.ErrorEnvelope("read request body: "+err.Error()))
		return
	}

	res := s.processor.Process(r.Context(), &pipeline.Input{Name: requestIDFrom(r.Context()), Data: body})
	if res.Err != nil {
		s.logger.Warn("execute failed", "request_id", requestIDFrom(r.Context()), "error", res.Err)
	}
	// ERROR envelopes are protocol data, not transport failures
	writeJSON(w, http.StatusOK, res.Output)
}

func (s *Server) handleMetadata(w http.ResponseWriter, _ *http.Request) {
	out, err := s.metadata.Envelope()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, protocol.ErrorEnvelope(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	out, err := schema.JSON()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, protocol.ErrorEnvelope(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func writeJSON(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID propagates an incoming X-Request-ID or assigns a new one
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (s *Server) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.AllowKey(clientKey(r)) {
			metrics.RecordRateLimited()
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, protocol.ErrorEnvelope("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(route, rec.code)
		s.logger.Debug("request",
			"request_id", requestIDFrom(r.Context()),
			"route", route,
			"status", rec.code,
			"duration", time.Since(start))
	})
}
