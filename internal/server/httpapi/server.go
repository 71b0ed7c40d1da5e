// Package httpapi exposes the backup gateway over plain HTTP.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophbackup/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// FileService is the lifecycle logic behind the handlers.
type FileService interface {
	Upload(ctx context.Context, name string, data []byte) error
	List(ctx context.Context) []string
	Download(ctx context.Context, name string) ([]byte, error)
}

type Server struct {
	address string
	files   FileService
	metrics http.Handler
	logger  logging.Logger
	handler http.Handler
}

// NewServer builds the router. metricsHandler may be nil, in which case
// /metrics is not served.
func NewServer(a string, l logging.Logger, fs FileService, metricsHandler http.Handler) *Server {
	s := &Server{
		address: a,
		files:   fs,
		metrics: metricsHandler,
		logger:  l.With("module", "http_server"),
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("PUT /{name}", s.handleUpload)
	mux.HandleFunc("GET /list", s.handleList)
	mux.HandleFunc("GET /download/{name}", s.handleDownload)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return s.requestID(s.accessLog(mux))
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled and then shuts down gracefully, letting
// in-flight requests finish.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-done
}
