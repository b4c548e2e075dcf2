package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/lox/blackjackforbots/internal/blackjack"
	"github.com/lox/blackjackforbots/internal/protocol"
	"github.com/lox/blackjackforbots/internal/session"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Connection is one player's WebSocket. Messages from the player and
// action timeouts are handled one at a time under mu.
type Connection struct {
	server   *Server
	playerID string
	ws       *websocket.Conn
	send     chan []byte
	logger   zerolog.Logger

	// ctx lives as long as the connection and is used for wallet calls
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	timer       *quartz.Timer
	timerGameID string

	closeOnce sync.Once
}

func newConnection(s *Server, playerID string, ws *websocket.Conn) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		server:   s,
		playerID: playerID,
		ws:       ws,
		send:     make(chan []byte, 64),
		logger:   s.logger.With().Str("player", playerID).Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *Connection) welcome(ctx context.Context) {
	balance, err := c.server.service.Balance(ctx, c.playerID)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to read balance")
		c.sendError(protocol.CodeInternal, "balance unavailable")
		return
	}
	minBet, maxBet := c.server.service.Limits()
	c.sendMessage(protocol.TypeWelcome, protocol.WelcomeData{
		PlayerID: c.playerID,
		Balance:  balance,
		MinBet:   minBet,
		MaxBet:   maxBet,
	})

	// a game left over from an earlier connection continues where it was
	if state, ok := c.server.service.Game(c.playerID); ok && !state.Done() {
		c.mu.Lock()
		c.sendResultLocked(&session.Result{State: state, Balance: balance})
		c.mu.Unlock()
	}
}

// readPump reads frames until the peer goes away, then surrenders any game
// still in progress.
func (c *Connection) readPump() {
	defer func() {
		c.disconnect()
		c.server.unregister(c)
		c.close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("Unexpected WebSocket close")
			}
			return
		}
		c.handleFrame(frame)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug().Err(err).Msg("Failed to write message")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Connection) handleFrame(frame []byte) {
	msg, err := c.server.validator.Validate(frame)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Rejected message")
		c.sendError(protocol.CodeInvalidMessage, err.Error())
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Type {
	case protocol.TypeStartGame:
		var data protocol.StartGameData
		if err := msg.Decode(&data); err != nil {
			c.sendError(protocol.CodeInvalidMessage, err.Error())
			return
		}
		res, err := c.server.service.Start(c.ctx, c.playerID, data.Channel, data.Bet)
		if err != nil {
			c.sendSessionError(err)
			return
		}
		c.sendResultLocked(res)

	case protocol.TypeAction:
		var data protocol.ActionData
		if err := msg.Decode(&data); err != nil {
			c.sendError(protocol.CodeInvalidMessage, err.Error())
			return
		}
		action, err := blackjack.ParseAction(data.Action)
		if err != nil {
			c.sendSessionError(err)
			return
		}
		res, err := c.server.service.Act(c.ctx, c.playerID, action)
		if err != nil {
			c.sendSessionError(err)
			return
		}
		c.sendResultLocked(res)
	}
}

// sendResultLocked sends the new state and re-arms or clears the action
// timer.
func (c *Connection) sendResultLocked(res *session.Result) {
	c.stopTimerLocked()

	if res.State.Done() {
		c.sendMessage(protocol.TypeGameOver, protocol.NewGameOver(res.State, res.Balance))
		return
	}

	gameID := res.State.ID
	c.timerGameID = gameID
	c.timer = c.server.clock.AfterFunc(c.server.timeout, func() {
		c.onTimeout(gameID)
	}, "action", c.playerID)
	c.sendMessage(protocol.TypeGameState, protocol.NewGameState(res.State, res.Balance, c.server.timeout))
}

func (c *Connection) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGameID = ""
}

func (c *Connection) onTimeout(gameID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// the player acted while the timer was firing
	if c.timerGameID != gameID {
		return
	}
	c.timer = nil
	c.timerGameID = ""

	res, err := c.server.service.Timeout(c.ctx, c.playerID)
	if err != nil {
		if !errors.Is(err, blackjack.ErrNoActiveGame) {
			c.logger.Error().Err(err).Str("game_id", gameID).Msg("Failed to surrender timed out game")
		}
		return
	}
	c.sendResultLocked(res)
}

// disconnect surrenders an unfinished game when the player goes away
func (c *Connection) disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()

	state, ok := c.server.service.Game(c.playerID)
	if !ok || state.Done() {
		return
	}

	// c.ctx may already be cancelled by a server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if _, err := c.server.service.Act(ctx, c.playerID, blackjack.Quit); err != nil &&
		!errors.Is(err, blackjack.ErrNoActiveGame) {
		c.logger.Error().Err(err).Str("game_id", state.ID).Msg("Failed to surrender game on disconnect")
		return
	}
	c.logger.Info().Str("game_id", state.ID).Msg("Surrendered game on disconnect")
}

func (c *Connection) sendSessionError(err error) {
	code := errorCode(err)
	if code == protocol.CodeInternal {
		c.logger.Error().Err(err).Msg("Session error")
	}
	c.sendError(code, err.Error())
}

func (c *Connection) sendError(code, message string) {
	c.sendMessage(protocol.TypeError, protocol.ErrorData{Code: code, Message: message})
}

func (c *Connection) sendMessage(t protocol.MessageType, data any) {
	msg, err := protocol.NewMessage(t, data)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build message")
		return
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to encode message")
		return
	}

	select {
	case c.send <- frame:
	case <-c.ctx.Done():
	default:
		c.logger.Warn().Msg("Send buffer full, closing connection")
		c.close()
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		c.cancel()
	})
}
