// Package server exposes the document service over HTTP.
package server

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/viant/docrag/service"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// DefaultMaxUploadBytes bounds a multipart upload.
const DefaultMaxUploadBytes = 32 << 20

// Service is the subset of service.Service the HTTP surface needs.
type Service interface {
	Upload(ctx context.Context, req *service.UploadRequest) (*service.UploadResult, error)
	Rechunk(ctx context.Context, req *service.RechunkRequest) (*service.RechunkResult, error)
	Ask(ctx context.Context, question string) (*service.Answer, error)
}

// Server routes HTTP requests to the Service.
type Server struct {
	svc            Service
	registry       *prometheus.Registry
	metrics        *metrics
	maxUploadBytes int64
	logf           func(format string, args ...any)
}

// Option configures the Server.
type Option func(*Server)

// WithRegistry sets the Prometheus registry metrics are registered with.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(s *Server) { s.registry = registry }
}

// WithMaxUploadBytes bounds the accepted upload size.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithLogf sets the request logger.
func WithLogf(fn func(format string, args ...any)) Option {
	return func(s *Server) { s.logf = fn }
}

// New creates a Server.
func New(svc Service, opts ...Option) *Server {
	s := &Server{svc: svc, maxUploadBytes: DefaultMaxUploadBytes, logf: log.Printf}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(s.registry)
	return s
}

// Handler returns the routed handler with request id, logging and metrics applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.upload)
	mux.HandleFunc("POST /prompt", s.prompt)
	mux.HandleFunc("POST /rechunk", s.rechunk)
	mux.HandleFunc("GET /healthz", s.healthz)
	mux.Handle("GET /metrics", s.metrics.handler(s.registry))
	return s.observe(mux)
}

// HTTP returns an http.Server for addr serving Handler.
func (s *Server) HTTP(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
}

type requestIDKey struct{}

// RequestID returns the request id stored in ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(started)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.observeRequest(route, rec.status, elapsed)
		s.logf("http method=%s path=%s status=%d dur=%s request_id=%s", r.Method, r.URL.Path, rec.status, elapsed.Round(time.Microsecond), id)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}
