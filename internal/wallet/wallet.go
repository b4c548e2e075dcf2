// Package wallet holds player coin balances used to stake and settle games.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrInsufficientFunds is returned when a debit would make a balance negative
var ErrInsufficientFunds = errors.New("wallet: insufficient funds")

// Store is the balance store the game session settles against.
type Store interface {
	// Balance returns the player's current balance
	Balance(ctx context.Context, playerID string) (int64, error)
	// Adjust adds delta (negative to debit) and returns the new balance
	Adjust(ctx context.Context, playerID string, delta int64, reason string) (int64, error)
}

// Transaction is one applied balance change
type Transaction struct {
	PlayerID     string
	Delta        int64
	Reason       string
	BalanceAfter int64
	Time         time.Time
}

// MemoryStore keeps balances in memory. Players seen for the first time
// start with the configured starting balance.
type MemoryStore struct {
	mu       sync.Mutex
	starting int64
	balances map[string]int64
	ledger   []Transaction
	now      func() time.Time

	// onChange runs with the lock held after every successful adjustment
	onChange func(balances map[string]int64) error
}

// NewMemoryStore creates an in-memory store
func NewMemoryStore(startingBalance int64) *MemoryStore {
	return &MemoryStore{
		starting: startingBalance,
		balances: make(map[string]int64),
		now:      time.Now,
	}
}

// Balance implements Store
func (s *MemoryStore) Balance(_ context.Context, playerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balanceLocked(playerID), nil
}

func (s *MemoryStore) balanceLocked(playerID string) int64 {
	if b, ok := s.balances[playerID]; ok {
		return b
	}
	return s.starting
}

// Adjust implements Store
func (s *MemoryStore) Adjust(ctx context.Context, playerID string, delta int64, reason string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.balanceLocked(playerID)
	next := current + delta
	if next < 0 {
		return current, fmt.Errorf("%w: balance %d, debit %d", ErrInsufficientFunds, current, -delta)
	}

	s.balances[playerID] = next
	if s.onChange != nil {
		if err := s.onChange(s.balances); err != nil {
			s.balances[playerID] = current
			return current, err
		}
	}
	s.ledger = append(s.ledger, Transaction{
		PlayerID:     playerID,
		Delta:        delta,
		Reason:       reason,
		BalanceAfter: next,
		Time:         s.now(),
	})
	return next, nil
}

// Transactions returns the applied changes for a player, oldest first
func (s *MemoryStore) Transactions(playerID string) []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Transaction
	for _, tx := range s.ledger {
		if tx.PlayerID == playerID {
			out = append(out, tx)
		}
	}
	return out
}

// Players returns every player with a stored balance, sorted
func (s *MemoryStore) Players() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.balances))
	for id := range s.balances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
