package util

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// MonitorServer serves the HTTP API on details_port and can be restarted
// when the config changes.
type MonitorServer struct {
	running *sync.Mutex // held while a server is listening
	srv     *http.Server
	router  *mux.Router
	srvMu   sync.RWMutex // protects srv field
}

func NewMonitorServer(router *mux.Router) *MonitorServer {
	if router == nil {
		router = mux.NewRouter()
	}
	return &MonitorServer{
		running: &sync.Mutex{},
		router:  router,
	}
}

func (s *MonitorServer) Router() *mux.Router {
	return s.router
}

func (s *MonitorServer) AddHandler(path string, handler func(http.ResponseWriter, *http.Request), methods ...string) {
	route := s.router.HandleFunc(path, handler)
	if len(methods) > 0 {
		route.Methods(methods...)
	}
}

func (s *MonitorServer) AddRawHandler(path string, handler http.Handler) {
	s.router.Handle(path, handler)
}

func (s *MonitorServer) Addr() string {
	return fmt.Sprintf(":%d", Config.GetInt("details_port"))
}

func (s *MonitorServer) Start() error {
	if !s.running.TryLock() {
		return fmt.Errorf("already running")
	}
	newSrv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.srvMu.Lock()
	s.srv = newSrv
	s.srvMu.Unlock()

	go func() {
		Logger.Info().Msgf("monitor server listening on %s", newSrv.Addr)
		if err := newSrv.ListenAndServe(); err != http.ErrServerClosed {
			Logger.Warn().Msgf("Problem loading monitor server: %v", err)
		}
		Logger.Debug().Msg("monitor server shutdown")
		s.running.Unlock()
	}()
	return nil
}

func (s *MonitorServer) Stop(ctx context.Context) error {
	s.srvMu.RLock()
	currentSrv := s.srv
	s.srvMu.RUnlock()
	if currentSrv == nil {
		return nil
	}
	return currentSrv.Shutdown(ctx)
}

// Running reports whether a server is currently listening.
func (s *MonitorServer) Running() bool {
	if s.running.TryLock() {
		s.running.Unlock()
		return false
	}
	return true
}

func (s *MonitorServer) Restart() {
	Logger.Debug().Msg("restarting monitor server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		Logger.Error().Msgf("Error shutting down monitor server: %v", err)
	}
	Logger.Debug().Msg("waiting for shutdown")
	s.running.Lock() // released by the serving goroutine on exit
	Logger.Debug().Msg("http not running - good for startup")
	s.running.Unlock()
	if err := s.Start(); err != nil {
		Logger.Error().Msgf("Error starting monitor server: %v", err)
	}
}
