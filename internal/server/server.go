package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/danmuck/playernet/internal/config"
	"github.com/danmuck/playernet/internal/events"
	"github.com/danmuck/playernet/internal/network"
	"github.com/danmuck/playernet/internal/observability"
	"github.com/danmuck/playernet/internal/player"
	"github.com/danmuck/playernet/internal/protocol"
	"github.com/danmuck/playernet/internal/protocol/frame"
	"github.com/danmuck/playernet/internal/protocol/packet"
	"github.com/danmuck/playernet/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	Version = "0.1.0"

	ReasonServerClosed = "Server closed"
	shutdownTimeout    = 5 * time.Second
)

var ErrSessionNotFound = errors.New("server: session not found")

// Server hosts game sessions on the network interface and serves the admin
// API. Each accepted connection gets a Player owned by a session Adapter.
type Server struct {
	cfg     config.ServerConfig
	bus     *events.Bus
	world   *player.World
	iface   *network.Interface
	router  *gin.Engine
	started time.Time

	mu       sync.RWMutex
	sessions map[string]*session.Adapter
}

var (
	_ network.Host        = (*Server)(nil)
	_ session.Broadcaster = (*Server)(nil)
)

func New(cfg config.ServerConfig) (*Server, error) {
	cfg.ApplyDefaults()
	if err := config.ValidateServerConfig(cfg); err != nil {
		return nil, err
	}
	observability.RegisterMetrics()

	s := &Server{
		cfg:      cfg,
		bus:      events.NewBus(),
		world:    player.NewWorld(),
		sessions: make(map[string]*session.Adapter),
		started:  time.Now(),
	}
	iface, err := network.New(network.Config{
		ListenAddr:    cfg.ListenAddr,
		FlushInterval: cfg.Flush(),
		Limits:        frame.Limits{MaxPayloadBytes: cfg.MaxPayloadBytes},
	}, s)
	if err != nil {
		return nil, err
	}
	s.iface = iface
	if err := installObservers(s.bus, cfg); err != nil {
		return nil, err
	}
	s.router = s.newRouter()
	return s, nil
}

func (s *Server) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(observability.ComponentLogger("admin")))
	r.Use(observability.RequestMetricsMiddleware(s.cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(s.cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	s.registerRoutes(r)
	return r
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}

func (s *Server) Bus() *events.Bus {
	return s.bus
}

func (s *Server) World() *player.World {
	return s.world
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Listen binds the game listener so Addr is known before Run.
func (s *Server) Listen() error {
	return s.iface.Listen()
}

func (s *Server) Addr() net.Addr {
	return s.iface.Addr()
}

// OnOpen builds the player and adapter for a new connection.
func (s *Server) OnOpen(sessionID string, remote net.Addr) (network.Handler, error) {
	p := player.New(sessionID, s.world, s.cfg.PlayerConfig())
	a, err := session.New(session.Config{
		ID:          sessionID,
		Owner:       p,
		Transport:   s.iface,
		Interceptor: s.bus,
		Decoder:     packet.Codec{},
		Broadcaster: s,
		Diagnostics: observability.NewDiagnostics(observability.ComponentLogger("session"), s.cfg.Name, sessionID),
		Timings:     observability.NewTimings(),
		Recorder:    observability.Outcomes{},
	})
	if err != nil {
		s.world.Remove(sessionID)
		return nil, err
	}
	p.Attach(a)

	s.mu.Lock()
	s.sessions[sessionID] = a
	n := len(s.sessions)
	s.mu.Unlock()
	observability.SetActiveSessions(n)

	log.Info().
		Str("server", s.cfg.Name).
		Str("session", sessionID).
		Str("remote", remote.String()).
		Msg("session created")
	return a, nil
}

// OnClose drops the session and its player once the transport has closed.
func (s *Server) OnClose(sessionID, reason string) {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return
	}
	s.world.Remove(sessionID)
	observability.SetActiveSessions(n)

	log.Info().
		Str("server", s.cfg.Name).
		Str("session", sessionID).
		Str("reason", reason).
		Msg("session destroyed")
}

// Broadcast sends env through each target session's outbound pipeline.
func (s *Server) Broadcast(sessionIDs []string, env *protocol.Envelope) {
	for _, id := range sessionIDs {
		a, ok := s.session(id)
		if !ok {
			continue
		}
		a.SendOutbound(env, false)
	}
}

func (s *Server) session(id string) (*session.Adapter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.sessions[id]
	return a, ok
}

func (s *Server) adapters() []*session.Adapter {
	s.mu.RLock()
	out := make([]*session.Adapter, 0, len(s.sessions))
	for _, a := range s.sessions {
		out = append(out, a)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Disconnect ends one session from the server side.
func (s *Server) Disconnect(sessionID, reason string, notify bool) error {
	a, ok := s.session(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	a.ServerDisconnect(reason, notify)
	return nil
}

// DisconnectAll notifies and closes every session.
func (s *Server) DisconnectAll(reason string) int {
	list := s.adapters()
	for _, a := range list {
		a.ServerDisconnect(reason, true)
	}
	return len(list)
}

// Sessions describes every live session.
func (s *Server) Sessions() []player.Info {
	list := s.adapters()
	out := make([]player.Info, 0, len(list))
	for _, a := range list {
		if p, ok := a.Owner().(*player.Player); ok {
			out = append(out, p.Info())
		}
	}
	return out
}

func (s *Server) SessionInfo(sessionID string) (player.Info, error) {
	a, ok := s.session(sessionID)
	if !ok {
		return player.Info{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	p, ok := a.Owner().(*player.Player)
	if !ok {
		return player.Info{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return p.Info(), nil
}

// Run serves the game listener and the admin API until ctx is done. On
// shutdown every session receives a disconnect notice before the listener
// closes.
func (s *Server) Run(ctx context.Context) error {
	if err := s.iface.Listen(); err != nil {
		return err
	}
	netCtx, stopNet := context.WithCancel(context.Background())
	defer stopNet()

	errCh := make(chan error, 2)
	netDone := make(chan struct{})
	go func() {
		defer close(netDone)
		if err := s.iface.Serve(netCtx); err != nil {
			errCh <- fmt.Errorf("game listener: %w", err)
		}
	}()

	httpSrv := &http.Server{
		Addr:              s.cfg.AdminAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("server", s.cfg.Name).Str("addr", s.cfg.AdminAddr).Msg("admin api listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("admin api: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	closed := s.DisconnectAll(ReasonServerClosed)
	log.Info().Str("server", s.cfg.Name).Int("sessions", closed).Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	stopNet()
	<-netDone
	return runErr
}
