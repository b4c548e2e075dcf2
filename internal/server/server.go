// Package server exposes blackjack sessions to bots and humans over
// WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/lox/blackjackforbots/internal/blackjack"
	"github.com/lox/blackjackforbots/internal/protocol"
	"github.com/lox/blackjackforbots/internal/session"
	"github.com/lox/blackjackforbots/internal/statistics"
	"github.com/lox/blackjackforbots/internal/wallet"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultActionTimeout is how long a player may think before the game is
// surrendered for them.
const DefaultActionTimeout = 60 * time.Second

// Server accepts one WebSocket connection per player and plays their games
// through a session.Service.
type Server struct {
	service   *session.Service
	validator *protocol.Validator
	upgrader  websocket.Upgrader
	logger    zerolog.Logger
	clock     quartz.Clock
	timeout   time.Duration
	startedAt time.Time

	mu    sync.RWMutex
	conns map[string]*Connection
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger.With().Str("component", "server").Logger()
	}
}

// WithClock sets the clock used for action timeouts
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// WithActionTimeout sets how long a player may take per decision
func WithActionTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewServer creates a server for service
func NewServer(service *session.Service, opts ...Option) (*Server, error) {
	validator, err := protocol.NewValidator()
	if err != nil {
		return nil, err
	}

	s := &Server{
		service:   service,
		validator: validator,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:  zerolog.Nop(),
		clock:   quartz.NewReal(),
		timeout: DefaultActionTimeout,
		conns:   make(map[string]*Connection),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.clock.Now()
	return s, nil
}

// Handler returns the HTTP routes served by the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
// and surrenders any game still in progress.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting WebSocket server")
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeAll()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		http.Error(w, "player query parameter is required", http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	_, taken := s.conns[playerID]
	s.mu.RUnlock()
	if taken {
		http.Error(w, "player already connected", http.StatusConflict)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	c := newConnection(s, playerID, ws)
	if !s.register(c) {
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "player already connected"))
		_ = ws.Close()
		return
	}

	go c.writePump()
	c.welcome(r.Context())
	c.readPump()
}

func (s *Server) register(c *Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.conns[c.playerID]; exists {
		return false
	}
	s.conns[c.playerID] = c
	s.logger.Info().Str("player", c.playerID).Int("connected", len(s.conns)).Msg("Player connected")
	return true
}

func (s *Server) unregister(c *Connection) {
	s.mu.Lock()
	if s.conns[c.playerID] == c {
		delete(s.conns, c.playerID)
	}
	n := len(s.conns)
	s.mu.Unlock()
	s.logger.Info().Str("player", c.playerID).Int("connected", n).Msg("Player disconnected")
}

func (s *Server) closeAll() {
	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.RUnlock()
	for _, c := range conns {
		c.close()
	}
}

// ConnectedPlayers returns the IDs of connected players, sorted
func (s *Server) ConnectedPlayers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.conns))
	for id := range s.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

// PlayerStats is the per-player section of the /stats response
type PlayerStats struct {
	Games      int     `json:"games"`
	Wins       int     `json:"wins"`
	Blackjacks int     `json:"blackjacks"`
	Pushes     int     `json:"pushes"`
	Losses     int     `json:"losses"`
	Busts      int     `json:"busts"`
	Surrenders int     `json:"surrenders"`
	Net        int64   `json:"net"`
	WinRate    float64 `json:"win_rate"`
	MeanNet    float64 `json:"mean_net"`
}

// StatsResponse is the body served at /stats
type StatsResponse struct {
	UptimeSeconds int64                  `json:"uptime_seconds"`
	Connected     int                    `json:"connected"`
	ActiveGames   int                    `json:"active_games"`
	Totals        PlayerStats            `json:"totals"`
	Players       map[string]PlayerStats `json:"players"`
}

// Stats builds the /stats response
func (s *Server) Stats() StatsResponse {
	collector := s.service.Statistics()
	resp := StatsResponse{
		UptimeSeconds: int64(s.clock.Since(s.startedAt).Seconds()),
		Connected:     len(s.ConnectedPlayers()),
		ActiveGames:   s.service.Engine().ActiveGames(),
		Players:       make(map[string]PlayerStats),
	}

	total := collector.Total()
	resp.Totals = toPlayerStats(&total)
	for id, st := range collector.All() {
		resp.Players[id] = toPlayerStats(&st)
	}
	return resp
}

func toPlayerStats(st *statistics.Stats) PlayerStats {
	return PlayerStats{
		Games:      st.Games,
		Wins:       st.Wins,
		Blackjacks: st.Blackjacks,
		Pushes:     st.Pushes,
		Losses:     st.Losses,
		Busts:      st.Busts,
		Surrenders: st.Surrenders,
		Net:        st.Net,
		WinRate:    st.WinRate(),
		MeanNet:    st.Mean(),
	}
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Stats()); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode stats")
	}
}

// errorCode maps session and engine errors to protocol error codes
func errorCode(err error) string {
	switch {
	case errors.Is(err, protocol.ErrInvalidMessage):
		return protocol.CodeInvalidMessage
	case errors.Is(err, blackjack.ErrInvalidBet):
		return protocol.CodeInvalidBet
	case errors.Is(err, session.ErrBetOutOfRange):
		return protocol.CodeBetOutOfRange
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return protocol.CodeInsufficientFunds
	case errors.Is(err, blackjack.ErrGameInProgress):
		return protocol.CodeGameInProgress
	case errors.Is(err, blackjack.ErrNoActiveGame):
		return protocol.CodeNoActiveGame
	case errors.Is(err, blackjack.ErrUnknownAction):
		return protocol.CodeUnknownAction
	default:
		return protocol.CodeInternal
	}
}
