// Package statistics accumulates per-player blackjack results.
package statistics

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/lox/blackjackforbots/internal/blackjack"
)

// GameResult is the part of a settled game the statistics care about
type GameResult struct {
	Bet       int64
	AmountWon int64
	Outcome   blackjack.Outcome
}

// Net returns the balance change in coins
func (r GameResult) Net() int64 {
	return r.AmountWon - r.Bet
}

// ResultFromState extracts a GameResult from a settled game
func ResultFromState(state *blackjack.GameState) GameResult {
	return GameResult{Bet: state.Bet, AmountWon: state.AmountWon, Outcome: state.Outcome}
}

// Stats tracks results for one player
type Stats struct {
	Games      int
	Wins       int // includes Blackjacks
	Blackjacks int
	Pushes     int
	Losses     int // includes Busts and Surrenders
	Busts      int
	Surrenders int

	Wagered int64
	Net     int64
	SumSq   float64 // sum of squared net results, for variance

	BiggestWin  int64
	BiggestLoss int64
}

// Add incorporates one settled game
func (s *Stats) Add(r GameResult) {
	net := r.Net()
	s.Games++
	s.Wagered += r.Bet
	s.Net += net
	s.SumSq += float64(net) * float64(net)

	switch r.Outcome {
	case blackjack.OutcomeBlackjack:
		s.Wins++
		s.Blackjacks++
	case blackjack.OutcomeWin:
		s.Wins++
	case blackjack.OutcomePush:
		s.Pushes++
	case blackjack.OutcomeBust:
		s.Losses++
		s.Busts++
	case blackjack.OutcomeSurrender:
		s.Losses++
		s.Surrenders++
	case blackjack.OutcomeLoss, blackjack.OutcomePending:
		s.Losses++
	}

	if net > s.BiggestWin {
		s.BiggestWin = net
	}
	if -net > s.BiggestLoss {
		s.BiggestLoss = -net
	}
}

// Merge adds other's totals into s
func (s *Stats) Merge(other Stats) {
	s.Games += other.Games
	s.Wins += other.Wins
	s.Blackjacks += other.Blackjacks
	s.Pushes += other.Pushes
	s.Losses += other.Losses
	s.Busts += other.Busts
	s.Surrenders += other.Surrenders
	s.Wagered += other.Wagered
	s.Net += other.Net
	s.SumSq += other.SumSq
	s.BiggestWin = max(s.BiggestWin, other.BiggestWin)
	s.BiggestLoss = max(s.BiggestLoss, other.BiggestLoss)
}

// Mean returns the average net result per game
func (s *Stats) Mean() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Net) / float64(s.Games)
}

// Variance returns the sample variance of net results
func (s *Stats) Variance() float64 {
	if s.Games < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumSq - float64(s.Games)*mean*mean) / float64(s.Games-1)
}

// StdDev returns the sample standard deviation of net results
func (s *Stats) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Stats) ConfidenceInterval95() (float64, float64) {
	if s.Games == 0 {
		return 0, 0
	}
	margin := 1.96 * s.StdDev() / math.Sqrt(float64(s.Games))
	return s.Mean() - margin, s.Mean() + margin
}

// WinRate returns the fraction of games won
func (s *Stats) WinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Games)
}

// HouseEdge returns the player's loss per coin wagered
func (s *Stats) HouseEdge() float64 {
	if s.Wagered == 0 {
		return 0
	}
	return -float64(s.Net) / float64(s.Wagered)
}

// Validate checks that the outcome buckets add up
func (s *Stats) Validate() error {
	if s.Wins+s.Pushes+s.Losses != s.Games {
		return fmt.Errorf("outcomes (%d wins, %d pushes, %d losses) do not add up to %d games",
			s.Wins, s.Pushes, s.Losses, s.Games)
	}
	if s.Blackjacks > s.Wins {
		return fmt.Errorf("blackjacks (%d) exceed wins (%d)", s.Blackjacks, s.Wins)
	}
	if s.Busts+s.Surrenders > s.Losses {
		return fmt.Errorf("busts and surrenders (%d) exceed losses (%d)", s.Busts+s.Surrenders, s.Losses)
	}
	return nil
}

// Collector aggregates Stats per player. It is safe for concurrent use.
type Collector struct {
	mu      sync.RWMutex
	players map[string]*Stats
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{players: make(map[string]*Stats)}
}

// Record adds a settled game to its player's stats. Unsettled states are
// ignored.
func (c *Collector) Record(state *blackjack.GameState) {
	if state == nil || !state.Done() {
		return
	}
	c.Add(state.PlayerID, ResultFromState(state))
}

// Add records a result for playerID
func (c *Collector) Add(playerID string, r GameResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.players[playerID]
	if !ok {
		s = &Stats{}
		c.players[playerID] = s
	}
	s.Add(r)
}

// Player returns a copy of one player's stats
func (c *Collector) Player(playerID string) (Stats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.players[playerID]
	if !ok {
		return Stats{}, false
	}
	return *s, true
}

// All returns a copy of every player's stats
func (c *Collector) All() map[string]Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Stats, len(c.players))
	for id, s := range c.players {
		out[id] = *s
	}
	return out
}

// Players returns the recorded player IDs, sorted
func (c *Collector) Players() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.players))
	for id := range c.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Total merges every player's stats
func (c *Collector) Total() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total Stats
	for _, s := range c.players {
		total.Merge(*s)
	}
	return total
}
