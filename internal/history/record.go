// Package history records settled games as TOML so they can be replayed
// or inspected later.
package history

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lox/blackjackforbots/cards"
	"github.com/lox/blackjackforbots/internal/blackjack"
)

// Record is one settled game as written to a history file.
type Record struct {
	GameID       string    `toml:"id"`
	Player       string    `toml:"player"`
	Channel      string    `toml:"channel,omitempty"`
	Bet          int64     `toml:"bet"`
	PlayerCards  []string  `toml:"player_cards"`
	DealerCards  []string  `toml:"dealer_cards"`
	PlayerTotal  int       `toml:"player_total"`
	DealerTotal  int       `toml:"dealer_total"`
	Actions      []string  `toml:"actions"`
	Outcome      string    `toml:"outcome"`
	AmountWon    int64     `toml:"amount_won"`
	Surrendered  bool      `toml:"surrendered,omitempty"`
	TimedOut     bool      `toml:"timed_out,omitempty"`
	StartedAt    time.Time `toml:"started_at"`
	EndedAt      time.Time `toml:"ended_at"`
	BalanceAfter int64     `toml:"balance_after"`
}

// Net returns the balance change of the game
func (r Record) Net() int64 {
	return r.AmountWon - r.Bet
}

// FromState builds a record from a settled game. actions lists the player
// actions in the order they were applied.
func FromState(state *blackjack.GameState, actions []blackjack.Action) Record {
	acts := make([]string, len(actions))
	for i, a := range actions {
		acts[i] = a.String()
	}
	return Record{
		GameID:      state.ID,
		Player:      state.PlayerID,
		Channel:     state.ChannelID,
		Bet:         state.Bet,
		PlayerCards: compact(state.PlayerCards),
		DealerCards: compact(state.DealerCards),
		PlayerTotal: state.PlayerValue().Best(),
		DealerTotal: state.DealerValue().Best(),
		Actions:     acts,
		Outcome:     state.Outcome.String(),
		AmountWon:   state.AmountWon,
		Surrendered: state.Surrendered,
		StartedAt:   state.StartedAt.UTC(),
		EndedAt:     state.EndedAt.UTC(),
	}
}

func compact(cs []cards.Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Compact()
	}
	return out
}

// file is the on-disk layout: an array of [[game]] tables
type file struct {
	Games []Record `toml:"game"`
}

// Encode writes records as [[game]] tables. Encoding one record at a time
// and concatenating the output yields the same document.
func Encode(w io.Writer, records ...Record) error {
	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(file{Games: records})
}

// Decode reads every [[game]] table from r
func Decode(r io.Reader) ([]Record, error) {
	var f file
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("history: decode: %w", err)
	}
	return f.Games, nil
}

// ReadFile decodes a history file written by FileRecorder
func ReadFile(path string) ([]Record, error) {
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("history: read %s: %w", path, err)
	}
	return f.Games, nil
}

// Recorder stores settled games.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
	Close() error
}

// Nop discards every record
type Nop struct{}

func (Nop) Record(context.Context, Record) error { return nil }
func (Nop) Close() error                         { return nil }

// MemoryRecorder keeps records in memory, for tests and simulations.
type MemoryRecorder struct {
	mu      sync.Mutex
	records []Record
}

func (m *MemoryRecorder) Record(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *MemoryRecorder) Close() error { return nil }

// Records returns a copy of everything recorded so far
func (m *MemoryRecorder) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Len returns the number of records
func (m *MemoryRecorder) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

var _ Recorder = Nop{}
var _ Recorder = (*MemoryRecorder)(nil)
var _ Recorder = (*FileRecorder)(nil)
