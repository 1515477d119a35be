// Package web serves the engine over a WebSocket: clients send commands and
// receive the engine's events as JSON messages.
package web

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/dimslaev/ai-chat/internal/consts"
	"github.com/dimslaev/ai-chat/internal/event"
	"github.com/dimslaev/ai-chat/internal/logger"
	"github.com/dimslaev/ai-chat/internal/orchestrator"
	"github.com/dimslaev/ai-chat/internal/pprof"
)

const authTokenLength = 32

// EngineFactory creates the engine for one connection, emitting into sink.
type EngineFactory func(ctx context.Context, sink event.Sink) (*orchestrator.Engine, error)

// Options configures a Server.
type Options struct {
	Addr string
	// AuthToken is required as ?token= on /ws. Empty generates one.
	AuthToken string
	NewEngine EngineFactory
	Debug     bool
	// Profiling mounts /debug/pprof.
	Profiling bool
	Logger    *logger.Logger
}

// Server represents the web server
type Server struct {
	addr       string
	authToken  string
	newEngine  EngineFactory
	hub        *Hub
	hubOnce    sync.Once
	httpServer *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader
	started    time.Time
	profiling  bool
	debug      bool
	log        *logger.Logger
}

// NewServer creates a new web server
func NewServer(opts Options) (*Server, error) {
	if opts.NewEngine == nil {
		return nil, errors.New("web: engine factory is required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Global()
	}
	log = log.WithPrefix("web")

	token := opts.AuthToken
	if token == "" {
		var err error
		if token, err = generateAuthToken(); err != nil {
			return nil, fmt.Errorf("failed to generate auth token: %w", err)
		}
	}

	return &Server{
		addr:      opts.Addr,
		authToken: token,
		newEngine: opts.NewEngine,
		hub:       NewHub(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameHostOrigin,
		},
		started:   time.Now(),
		profiling: opts.Profiling,
		debug:     opts.Debug,
		log:       log,
	}, nil
}

// Handler returns the HTTP routes. The hub starts with the first call.
func (s *Server) Handler() http.Handler {
	s.hubOnce.Do(func() { go s.hub.Run() })
	router := httprouter.New()
	router.GET("/ws", s.handleWebSocket)
	router.GET("/healthz", s.handleHealth)
	if s.profiling {
		pprof.Mount(router)
	}
	return router
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.addr = ln.Addr().String()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: consts.Timeout10Seconds,
		ErrorLog:          logger.StdLogger(s.log, slog.LevelError),
	}

	go func() {
		s.log.Info("Web server listening on %s", s.addr)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server error: %v", err)
		}
	}()
	return nil
}

// Stop stops every client's turn, notifies and disconnects the clients,
// then shuts the server down. Shutdown does not track hijacked WebSocket
// connections, so clients are closed here first.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Stopping web server...")

	var errs []error
	for _, client := range s.hub.Clients() {
		notice := &WebMessage{Type: MessageTypeSystem, Message: "server shutting down", Timestamp: time.Now()}
		if err := client.shutdown(ctx, notice); err != nil {
			errs = append(errs, err)
		}
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown HTTP server: %w", err))
		}
	}
	s.hub.Stop()
	return errors.Join(errs...)
}

// Addr returns the listen address, resolved after Start.
func (s *Server) Addr() string {
	return s.addr
}

// AuthToken returns the token clients must present.
func (s *Server) AuthToken() string {
	return s.authToken
}

// URL returns the WebSocket URL including the auth token.
func (s *Server) URL() string {
	return fmt.Sprintf("ws://%s/ws?token=%s", s.addr, s.authToken)
}

// Hub returns the client hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	queryToken := r.URL.Query().Get("token")
	if subtle.ConstantTimeCompare([]byte(queryToken), []byte(s.authToken)) != 1 {
		s.log.Warn("WebSocket connection rejected: invalid auth token")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("Failed to upgrade WebSocket: %v", err)
		return
	}

	client := NewClient(s.hub, conn, s.debug, s.log)
	engine, err := s.newEngine(client.ctx, client)
	if err != nil {
		s.log.Error("Failed to create engine: %v", err)
		data, _ := json.Marshal(errorMessage(err.Error(), orchestrator.CodeProviderError))
		_ = conn.SetWriteDeadline(time.Now().Add(consts.WebSocketWriteWait))
		_ = conn.WriteMessage(websocket.TextMessage, data)
		conn.Close()
		return
	}
	client.SetEngine(engine)

	client.deliver(&WebMessage{
		Type:      MessageTypeReady,
		Enabled:   boolPtr(engine.ToolsEnabled()),
		Data:      map[string]any{"client_id": client.ID},
		Timestamp: time.Now(),
	})

	s.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

// sameHostOrigin accepts non-browser clients and browsers on the same host.
func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// generateAuthToken generates a random auth token
func generateAuthToken() (string, error) {
	bytes := make([]byte, authTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
