// Package api implements the HTTP control surface of the signal service:
// JSON handlers over the state store, a websocket state feed, and the
// demonstration endpoints.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"trafficd/internal/config"
	"trafficd/internal/core"
	"trafficd/internal/eventlog"
)

// Server holds the HTTP server and everything the handlers touch: the state
// store, the event logger and the websocket hub.  The background context is
// handed to the demonstration cycle so it stops on shutdown.
type Server struct {
	cfg     config.Config
	store   *core.Store
	events  *eventlog.Logger
	hub     *hub
	mux     *http.ServeMux
	httpSrv *http.Server

	bg       context.Context
	cancelBG context.CancelFunc
}

// NewServer constructs a server over an initialised store.
func NewServer(cfg config.Config, store *core.Store, events *eventlog.Logger) *Server {
	bg, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		store:    store,
		events:   events,
		hub:      newHub(),
		bg:       bg,
		cancelBG: cancel,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/signals", s.withLog(s.handleSignals))
	mux.HandleFunc("/signals/sync", s.withLog(s.handleSync))
	mux.HandleFunc("/signals/ws", s.handleWS)
	mux.HandleFunc("/signal/", s.withLog(s.handleSignalByID))
	mux.HandleFunc("/emergency/activate", s.withLog(s.handleEmergencyActivate))
	mux.HandleFunc("/emergency/deactivate", s.withLog(s.handleEmergencyDeactivate))
	mux.HandleFunc("/test/all-green", s.withLog(s.handleTestAllGreen))
	mux.HandleFunc("/test/all-red", s.withLog(s.handleTestAllRed))
	mux.HandleFunc("/test/cycle", s.withLog(s.handleTestCycle))
	mux.HandleFunc("/events", s.withLog(s.handleEvents))
	mux.HandleFunc("/healthz", s.handleHealth)
	s.mux = mux
	return s
}

// Handler exposes the route table, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start launches the HTTP server.  It blocks until the server shuts down.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.HTTPPort)
	s.httpSrv = &http.Server{Addr: addr, Handler: s.mux}
	log.Printf("Listening on http://0.0.0.0%s\n", addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the background cycle, disconnects websocket clients and
// gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelBG()
	s.hub.closeAll()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
