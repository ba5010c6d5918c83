package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"codeberg.org/mutker/netfault/internal/errors"
	"codeberg.org/mutker/netfault/internal/logger"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// HTTPHandler returns an http.Handler that serves the metrics in reg
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Server exposes a registry on /metrics until its context ends
type Server struct {
	srv      *http.Server
	listener net.Listener
	log      logger.Logger
}

// Listen binds addr and returns a Server ready to Serve
func Listen(addr string, reg *prom.Registry, log logger.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.New().Wrap(err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", HTTPHandler(reg))

	return &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		listener: ln,
		log:      log,
	}, nil
}

// Addr returns the address the server is bound to
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks until ctx is done, then shuts the server down
func (s *Server) Serve(ctx context.Context) error {
	errFactory := errors.New()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.srv.Serve(s.listener)
	}()

	s.log.Info().Str("addr", s.Addr()).Msg("Serving metrics")

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errFactory.Wrap(err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return errFactory.Wrap(err)
	}
	<-serveErr

	return nil
}
