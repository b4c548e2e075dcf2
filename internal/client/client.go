// Package client connects bots to a blackjack server over WebSocket and
// plays games with a pluggable strategy.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/blackjackforbots/cards"
	"github.com/lox/blackjackforbots/internal/blackjack"
	"github.com/lox/blackjackforbots/internal/protocol"
	"github.com/lox/blackjackforbots/internal/statistics"
)

// ServerError is an error message sent by the server
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %s: %s", e.Code, e.Message)
}

// IsCode reports whether err is a ServerError with the given code
func IsCode(err error, code string) bool {
	var se *ServerError
	return errors.As(err, &se) && se.Code == code
}

// Client is a single player's connection. It is not safe for concurrent
// use; games are played one at a time.
type Client struct {
	conn     *websocket.Conn
	logger   *log.Logger
	welcome  protocol.WelcomeData
	playerID string
}

// Dial connects to serverURL as playerID and waits for the welcome
// message. http and https URLs are converted to ws and wss.
func Dial(ctx context.Context, serverURL, playerID string, logger *log.Logger) (*Client, error) {
	u, err := wsURL(serverURL, playerID)
	if err != nil {
		return nil, err
	}

	logger = logger.WithPrefix("client").With("player", playerID)
	logger.Debug("Connecting to server", "url", u)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect: %w (HTTP %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &Client{conn: conn, logger: logger, playerID: playerID}
	msg, err := c.read(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if msg.Type != protocol.TypeWelcome {
		_ = conn.Close()
		return nil, fmt.Errorf("expected welcome, got %s", msg.Type)
	}
	if err := msg.Decode(&c.welcome); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Info("Connected", "balance", c.welcome.Balance, "min_bet", c.welcome.MinBet)
	return c, nil
}

func wsURL(serverURL, playerID string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("player", playerID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Welcome returns the server's welcome message
func (c *Client) Welcome() protocol.WelcomeData {
	return c.welcome
}

// Close closes the connection
func (c *Client) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}

// PlayGame starts a game with bet and plays it to the end with strategy
func (c *Client) PlayGame(ctx context.Context, bet int64, strategy Strategy) (*protocol.GameOverData, error) {
	if err := c.write(protocol.TypeStartGame, protocol.StartGameData{Bet: bet}); err != nil {
		return nil, err
	}

	for {
		msg, err := c.read(ctx)
		if err != nil {
			return nil, err
		}

		switch msg.Type {
		case protocol.TypeGameState:
			var state protocol.GameStateData
			if err := msg.Decode(&state); err != nil {
				return nil, err
			}
			view, err := viewOf(state)
			if err != nil {
				return nil, err
			}
			action := strategy.Decide(view)
			c.logger.Debug("Decision", "cards", view.Player.String(), "dealer", view.DealerUp.String(), "action", action)
			if err := c.write(protocol.TypeAction, protocol.ActionData{Action: action.String()}); err != nil {
				return nil, err
			}

		case protocol.TypeGameOver:
			var over protocol.GameOverData
			if err := msg.Decode(&over); err != nil {
				return nil, err
			}
			c.logger.Debug("Game over", "outcome", over.Outcome, "net", over.Net, "balance", over.Balance)
			return &over, nil

		case protocol.TypeError:
			var data protocol.ErrorData
			if err := msg.Decode(&data); err != nil {
				return nil, err
			}
			return nil, &ServerError{Code: data.Code, Message: data.Message}

		default:
			c.logger.Warn("Ignoring unexpected message", "type", msg.Type)
		}
	}
}

// Play plays up to games games and returns the aggregated results. It
// stops early when ctx is done or the wallet cannot cover another bet.
func (c *Client) Play(ctx context.Context, games int, bet int64, strategy Strategy) (statistics.Stats, error) {
	var stats statistics.Stats
	for i := 0; i < games; i++ {
		if ctx.Err() != nil {
			return stats, nil
		}
		over, err := c.PlayGame(ctx, bet, strategy)
		if err != nil {
			if IsCode(err, protocol.CodeInsufficientFunds) {
				c.logger.Warn("Out of coins", "games", stats.Games)
				return stats, nil
			}
			if ctx.Err() != nil {
				return stats, nil
			}
			return stats, err
		}

		outcome, err := blackjack.ParseOutcome(over.Outcome)
		if err != nil {
			return stats, err
		}
		stats.Add(statistics.GameResult{Bet: over.Bet, AmountWon: over.AmountWon, Outcome: outcome})

		if (i+1)%100 == 0 {
			c.logger.Info("Progress", "games", stats.Games, "net", stats.Net, "balance", over.Balance)
		}
	}
	return stats, nil
}

func viewOf(state protocol.GameStateData) (View, error) {
	player, err := cards.ParseCards(strings.Join(state.PlayerCards, " "))
	if err != nil {
		return View{}, fmt.Errorf("player cards: %w", err)
	}
	if len(state.DealerCards) == 0 {
		return View{}, errors.New("dealer has no face-up card")
	}
	up, err := cards.ParseCard(state.DealerCards[0])
	if err != nil {
		return View{}, fmt.Errorf("dealer card: %w", err)
	}
	return View{Player: player, DealerUp: up, Bet: state.Bet}, nil
}

func (c *Client) write(t protocol.MessageType, data any) error {
	msg, err := protocol.NewMessage(t, data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// read waits for the next message. Cancelling ctx unblocks it by closing
// the connection.
func (c *Client) read(ctx context.Context) (*protocol.Message, error) {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	var msg protocol.Message
	if err := c.conn.ReadJSON(&msg); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read message: %w", err)
	}
	return &msg, nil
}
