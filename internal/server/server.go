// Package server hosts the gateway's HTTP surface: the websocket upgrade
// endpoint, health, and debug stats.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/chatgate/chatgate/internal/bus"
	"github.com/chatgate/chatgate/internal/gateway"
	"github.com/chatgate/chatgate/internal/store"
)

// Server is the HTTP listener in front of the connection engine.
type Server struct {
	addr     string
	server   *http.Server
	engine   *gateway.Engine
	registry *gateway.Registry
	mx       *bus.Multiplexer
	store    store.Store
	upgrader websocket.Upgrader

	listener net.Listener
	baseCtx  context.Context
}

// New creates the HTTP server. allowedOrigins restricts upgrades; empty
// allows any origin.
func New(host string, port int, engine *gateway.Engine, registry *gateway.Registry, mx *bus.Multiplexer, st store.Store, allowedOrigins []string) *Server {
	s := &Server{
		addr:     fmt.Sprintf("%s:%d", host, port),
		engine:   engine,
		registry: registry,
		mx:       mx,
		store:    st,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}

	r := mux.NewRouter()
	r.HandleFunc("/gateway", s.handleGateway).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/debug/stats", s.handleStats).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: r,
		// No Read/WriteTimeout: they would tear down long-lived websocket
		// connections. The gateway manages its own deadlines.
	}

	return s
}

// originChecker builds the upgrade origin check.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Start begins listening. It returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = ctx

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	log.Info().Str("addr", listener.Addr().String()).Msg("gateway server starting")

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("gateway server error")
		}
	}()

	return nil
}

// Addr returns the bound address. Valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("gateway server stopping")
	return s.server.Shutdown(ctx)
}

// handleGateway upgrades the request and hands the socket to the engine.
func (s *Server) handleGateway(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("upgrade failed")
		return
	}

	ctx := s.baseCtx
	if ctx == nil {
		ctx = r.Context()
	}
	s.engine.HandleConn(ctx, conn)
}

// handleHealth reports store reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]string{"status": "ok"}
	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]string{"status": "degraded", "store": err.Error()}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// handleStats exposes connection and fan-out counters. A user_id query
// parameter adds that user's live connection ids.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := struct {
		Connections int       `json:"connections"`
		Mux         bus.Stats `json:"mux"`
		UserConns   []string  `json:"user_conns,omitempty"`
	}{}
	if s.registry != nil {
		stats.Connections = s.registry.Len()
		if raw := r.URL.Query().Get("user_id"); raw != "" {
			userID, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				http.Error(w, "bad user_id", http.StatusBadRequest)
				return
			}
			stats.UserConns = s.registry.ConnsFor(userID)
		}
	}
	if s.mx != nil {
		stats.Mux = s.mx.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}
