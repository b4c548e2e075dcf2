// Package protocol defines the JSON messages exchanged between blackjack
// clients and the server over WebSocket.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lox/blackjackforbots/cards"
	"github.com/lox/blackjackforbots/internal/blackjack"
)

// MessageType identifies the type of message
type MessageType string

const (
	// Client -> Server
	TypeStartGame MessageType = "start_game"
	TypeAction    MessageType = "action"

	// Server -> Client
	TypeWelcome   MessageType = "welcome"
	TypeGameState MessageType = "game_state"
	TypeGameOver  MessageType = "game_over"
	TypeError     MessageType = "error"
)

// HiddenCard stands in for the dealer's face-down card
const HiddenCard = "??"

// Error codes sent in ErrorData
const (
	CodeInvalidMessage    = "invalid_message"
	CodeInvalidBet        = "invalid_bet"
	CodeBetOutOfRange     = "bet_out_of_range"
	CodeInsufficientFunds = "insufficient_funds"
	CodeGameInProgress    = "game_in_progress"
	CodeNoActiveGame      = "no_active_game"
	CodeUnknownAction     = "unknown_action"
	CodeInternal          = "internal_error"
)

// Message is the envelope every frame is wrapped in
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps data in an envelope stamped with the current time
func NewMessage(t MessageType, data any) (*Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", t, err)
	}
	return &Message{Type: t, Data: raw, Timestamp: time.Now()}, nil
}

// Decode unmarshals the payload into v
func (m *Message) Decode(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("protocol: decode %s: %w", m.Type, err)
	}
	return nil
}

// Client -> Server

type StartGameData struct {
	Bet     int64  `json:"bet"`
	Channel string `json:"channel,omitempty"`
}

type ActionData struct {
	Action string `json:"action"`
}

// Server -> Client

type WelcomeData struct {
	PlayerID string `json:"player_id"`
	Balance  int64  `json:"balance"`
	MinBet   int64  `json:"min_bet"`
	MaxBet   int64  `json:"max_bet,omitempty"`
}

type GameStateData struct {
	GameID         string   `json:"game_id"`
	Bet            int64    `json:"bet"`
	PlayerCards    []string `json:"player_cards"`
	DealerCards    []string `json:"dealer_cards"`
	PlayerTotals   []int    `json:"player_totals"`
	DealerTotals   []int    `json:"dealer_totals,omitempty"`
	CardsRemaining int      `json:"cards_remaining"`
	Stage          string   `json:"stage"`
	ValidActions   []string `json:"valid_actions,omitempty"`
	TimeoutMS      int64    `json:"timeout_ms,omitempty"`
	Balance        int64    `json:"balance"`
}

type GameOverData struct {
	GameStateData
	Outcome     string `json:"outcome"`
	AmountWon   int64  `json:"amount_won"`
	Net         int64  `json:"net"`
	Surrendered bool   `json:"surrendered,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewGameState renders an in-progress game for its player. The dealer's
// second card is hidden and dealer totals are omitted until the game ends.
func NewGameState(state *blackjack.GameState, balance int64, timeout time.Duration) GameStateData {
	data := GameStateData{
		GameID:         state.ID,
		Bet:            state.Bet,
		PlayerCards:    compact(state.PlayerCards),
		PlayerTotals:   state.PlayerValue().Totals(),
		CardsRemaining: state.CardsRemaining,
		Stage:          state.Stage.String(),
		Balance:        balance,
	}

	if state.Done() {
		data.DealerCards = compact(state.DealerCards)
		data.DealerTotals = state.DealerValue().Totals()
		return data
	}

	data.DealerCards = make([]string, len(state.DealerCards))
	for i, c := range state.DealerCards {
		if i == 0 {
			data.DealerCards[i] = c.Compact()
		} else {
			data.DealerCards[i] = HiddenCard
		}
	}
	data.ValidActions = []string{blackjack.Hit.String(), blackjack.Stand.String(), blackjack.Quit.String()}
	data.TimeoutMS = timeout.Milliseconds()
	return data
}

// NewGameOver renders a settled game with every card face up
func NewGameOver(state *blackjack.GameState, balance int64) GameOverData {
	return GameOverData{
		GameStateData: NewGameState(state, balance, 0),
		Outcome:       state.Outcome.String(),
		AmountWon:     state.AmountWon,
		Net:           state.Net(),
		Surrendered:   state.Surrendered,
	}
}

func compact(cs []cards.Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Compact()
	}
	return out
}
