package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/zeusync/muvr/internal/core/observability/log"
)

// HTTPServer exposes the broadcaster on /ws and a liveness probe on /healthz.
type HTTPServer struct {
	server      *http.Server
	broadcaster *Broadcaster
	logger      log.Log
	running     atomic.Bool
	addr        atomic.Value // string
}

func NewHTTPServer(addr string, broadcaster *Broadcaster, logger log.Log) *HTTPServer {
	s := &HTTPServer{broadcaster: broadcaster, logger: logger.Named("http")}
	mux := http.NewServeMux()
	mux.Handle("/ws", broadcaster)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s.server = &http.Server{Addr: addr, Handler: mux}
	s.addr.Store(addr)
	return s
}

// Start listens and serves in the background.
func (s *HTTPServer) Start(_ context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.running.Store(false)
		return errors.Join(ErrListenerFailed, err)
	}
	s.addr.Store(ln.Addr().String())
	s.logger.Info("server listening", log.String("addr", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped", log.Error(err))
		}
	}()
	return nil
}

// Stop closes viewers and shuts the listener down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrServerNotRunning
	}
	s.broadcaster.Close()
	return s.server.Shutdown(ctx)
}

// Addr is the bound address once started.
func (s *HTTPServer) Addr() string {
	return s.addr.Load().(string)
}
