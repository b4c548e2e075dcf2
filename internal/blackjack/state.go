package blackjack

import (
	"fmt"
	"strings"
	"time"

	"github.com/lox/blackjackforbots/cards"
)

// Stage is the externally observed lifecycle of a game
type Stage uint8

const (
	StageInProgress Stage = iota
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageInProgress:
		return "in_progress"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", s)
	}
}

// phase is the internal turn order; it collapses onto Stage
type phase uint8

const (
	phasePlayerTurn phase = iota
	phaseDealerTurn
	phaseSettled
)

func (p phase) stage() Stage {
	switch p {
	case phasePlayerTurn, phaseDealerTurn:
		return StageInProgress
	case phaseSettled:
		return StageDone
	default:
		panic(fmt.Sprintf("blackjack: unknown phase %d", p))
	}
}

// Action is a player decision
type Action uint8

const (
	Hit Action = iota + 1
	Stand
	Quit
)

func (a Action) String() string {
	switch a {
	case Hit:
		return "hit"
	case Stand:
		return "stand"
	case Quit:
		return "quit"
	default:
		return "unknown"
	}
}

// ParseAction converts a wire or command string to an Action
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hit", "h":
		return Hit, nil
	case "stand", "s":
		return Stand, nil
	case "quit", "q", "surrender":
		return Quit, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Outcome describes how a game was settled. It only affects presentation;
// AmountWon is authoritative for money.
type Outcome uint8

const (
	OutcomePending Outcome = iota
	OutcomeWin
	OutcomeBlackjack
	OutcomePush
	OutcomeLoss
	OutcomeBust
	OutcomeSurrender
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeWin:
		return "win"
	case OutcomeBlackjack:
		return "blackjack"
	case OutcomePush:
		return "push"
	case OutcomeLoss:
		return "loss"
	case OutcomeBust:
		return "bust"
	case OutcomeSurrender:
		return "surrender"
	default:
		return "unknown"
	}
}

// ParseOutcome is the inverse of Outcome.String
func ParseOutcome(s string) (Outcome, error) {
	for o := OutcomePending; o <= OutcomeSurrender; o++ {
		if o.String() == s {
			return o, nil
		}
	}
	return OutcomePending, fmt.Errorf("unknown outcome %q", s)
}

// GameState is a point-in-time copy of one game. Mutating it has no effect
// on the engine.
type GameState struct {
	ID             string
	PlayerID       string
	ChannelID      string
	Bet            int64
	PlayerCards    []cards.Card
	DealerCards    []cards.Card
	CardsRemaining int
	Stage          Stage
	Surrendered    bool
	AmountWon      int64
	Outcome        Outcome
	StartedAt      time.Time
	EndedAt        time.Time
}

// PlayerValue returns the valid totals of the player's hand
func (s *GameState) PlayerValue() Value {
	return Evaluate(s.PlayerCards)
}

// DealerValue returns the valid totals of the dealer's hand
func (s *GameState) DealerValue() Value {
	return Evaluate(s.DealerCards)
}

// Net returns the balance change of a settled game
func (s *GameState) Net() int64 {
	return s.AmountWon - s.Bet
}

// Done reports whether the game has been settled
func (s *GameState) Done() bool {
	return s.Stage == StageDone
}
