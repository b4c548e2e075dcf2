package blackjack

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lox/blackjackforbots/cards"
	"github.com/lox/blackjackforbots/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// stackedEngine returns an engine whose every game is dealt from a deck
// starting with the given cards: player, player, dealer, dealer, then draws.
func stackedEngine(t *testing.T, top string, opts ...Option) *Engine {
	t.Helper()
	topCards := cards.MustParseCards(top)
	source := func() *cards.Deck {
		d, err := cards.NewStackedDeck(topCards...)
		if err != nil {
			t.Fatalf("stacked deck: %v", err)
		}
		return d
	}
	opts = append([]Option{WithDeckSource(source)}, opts...)
	return NewEngine(randutil.New(1), opts...)
}

func requireCardCount(t *testing.T, s *GameState) {
	t.Helper()
	require.Equal(t, cards.DeckSize, s.CardsRemaining+len(s.PlayerCards)+len(s.DealerCards))
}

func TestStartGameDealOrder(t *testing.T) {
	t.Parallel()
	e := stackedEngine(t, "2c 3d 4h 5s")

	s, err := e.StartGame(10, "alice", "chan-1")
	require.NoError(t, err)

	assert.Equal(t, cards.MustParseCards("2c 3d"), s.PlayerCards)
	assert.Equal(t, cards.MustParseCards("4h 5s"), s.DealerCards)
	assert.Equal(t, StageInProgress, s.Stage)
	assert.Equal(t, int64(10), s.Bet)
	assert.Equal(t, "alice", s.PlayerID)
	assert.Equal(t, "chan-1", s.ChannelID)
	assert.Equal(t, OutcomePending, s.Outcome)
	assert.NotEmpty(t, s.ID)
	requireCardCount(t, s)
}

func TestStartGameRejectsInvalidBet(t *testing.T) {
	t.Parallel()
	e := NewEngine(randutil.New(1))

	for _, bet := range []int64{0, -5, math.MaxInt64/2 + 1, math.MaxInt64} {
		s, err := e.StartGame(bet, "alice", "c")
		assert.Nil(t, s)
		assert.ErrorIs(t, err, ErrInvalidBet)
	}
	assert.Equal(t, 0, e.ActiveGames())

	// A bonus on naturals lowers the ceiling.
	bonus := NewEngine(randutil.New(1), WithNaturalPayout(ThreeToTwo))
	_, err := bonus.StartGame(math.MaxInt64/2, "alice", "c")
	assert.ErrorIs(t, err, ErrInvalidBet)
	assert.Equal(t, 0, bonus.ActiveGames())
}

func TestLargestBetWinsWithoutOverflow(t *testing.T) {
	t.Parallel()
	e := stackedEngine(t, "Kh Qd 9c 8s")

	_, err := e.StartGame(math.MaxInt64/2, "alice", "c")
	require.NoError(t, err)

	s, err := e.PerformGameAction("alice", Stand)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWin, s.Outcome)
	assert.Equal(t, int64(math.MaxInt64-1), s.AmountWon)
}

func TestPayoutLimits(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		payout Payout
		bet    int64
		covers bool
	}{
		{"even money at limit", EvenMoney, math.MaxInt64 / 2, true},
		{"even money past limit", EvenMoney, math.MaxInt64/2 + 1, false},
		{"three to two a third of max", ThreeToTwo, math.MaxInt64 / 3, true},
		{"three to two half of max", ThreeToTwo, math.MaxInt64 / 2, false},
		{"ratio overflows on tiny bet", Payout{Num: math.MaxInt64, Den: 1}, 2, false},
		{"small bet", ThreeToTwo, 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.covers, tt.payout.covers(tt.bet))
		})
	}

	assert.Equal(t, int64(25), ThreeToTwo.winnings(10))
	assert.Equal(t, int64(12), ThreeToTwo.winnings(5))
	assert.Equal(t, int64(20), EvenMoney.winnings(10))
}

func TestEmptyDeckVoidsGame(t *testing.T) {
	t.Parallel()
	for _, action := range []Action{Hit, Stand} {
		t.Run(action.String(), func(t *testing.T) {
			e := NewEngine(randutil.New(1))
			empty, err := cards.NewStackedDeck()
			require.NoError(t, err)
			for empty.Remaining() > 0 {
				_, err := empty.Draw()
				require.NoError(t, err)
			}
			_, err = e.registry.Create("alice", func() (*game, error) {
				return &game{
					id:       "g1",
					playerID: "alice",
					bet:      10,
					deck:     empty,
					player:   Hand(cards.MustParseCards("9h 3d")),
					dealer:   Hand(cards.MustParseCards("6c 6s")),
					phase:    phasePlayerTurn,
				}, nil
			})
			require.NoError(t, err)

			_, err = e.PerformGameAction("alice", action)
			require.ErrorIs(t, err, ErrEngineInvariant)

			s, ok := e.Game("alice")
			require.True(t, ok)
			assert.Equal(t, StageDone, s.Stage)
			assert.Equal(t, OutcomePending, s.Outcome)
			assert.Zero(t, s.AmountWon)

			_, err = e.PerformGameAction("alice", Hit)
			assert.ErrorIs(t, err, ErrNoActiveGame)
		})
	}
}

func TestStartGameTwiceReturnsErrorAndKeepsFirstGame(t *testing.T) {
	t.Parallel()
	e := stackedEngine(t, "Kh 7d 9c 8s")

	first, err := e.StartGame(25, "alice", "chan-1")
	require.NoError(t, err)

	second, err := e.StartGame(50, "alice", "chan-2")
	assert.Nil(t, second)
	assert.ErrorIs(t, err, ErrGameInProgress)

	current, ok := e.Game("alice")
	require.True(t, ok)
	assert.Equal(t, first, current)
	assert.Equal(t, int64(25), current.Bet)
	assert.Equal(t, "chan-1", current.ChannelID)
}

func TestHitKeepsCardCount(t *testing.T) {
	t.Parallel()
	e := NewEngine(randutil.New(99))

	for i := 0; i < 200; i++ {
		player := fmt.Sprintf("p%d", i)
		s, err := e.StartGame(1, player, "c")
		require.NoError(t, err)
		requireCardCount(t, s)

		for !s.Done() {
			s, err = e.PerformGameAction(player, Hit)
			require.NoError(t, err)
			requireCardCount(t, s)
		}
		e.EndGame(player)
	}
}

func TestHitToBustLoses(t *testing.T) {
	t.Parallel()
	// Player 10+6, dealer 20, player draws a king.
	e := stackedEngine(t, "Th 6d Kc Qs Kd")

	s, err := e.StartGame(40, "alice", "c")
	require.NoError(t, err)
	require.Equal(t, StageInProgress, s.Stage)

	s, err = e.PerformGameAction("alice", Hit)
	require.NoError(t, err)

	assert.Equal(t, StageDone, s.Stage)
	assert.True(t, s.PlayerValue().IsBust())
	assert.Equal(t, int64(0), s.AmountWon)
	assert.Equal(t, OutcomeBust, s.Outcome)
	assert.False(t, s.Surrendered)
	assert.Len(t, s.DealerCards, 2, "dealer does not play after a player bust")
}

func TestHitWithoutBustStaysInProgress(t *testing.T) {
	t.Parallel()
	e := stackedEngine(t, "2h 3d Kc 7s 4c")

	_, err := e.StartGame(10, "alice", "c")
	require.NoError(t, err)

	s, err := e.PerformGameAction("alice", Hit)
	require.NoError(t, err)
	assert.Equal(t, StageInProgress, s.Stage)
	assert.Equal(t, 9, s.PlayerValue().Best())
}

func TestStandAgainstDrawingDealer(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		deck      string
		amountWon int64
		outcome   Outcome
		dealer    int
	}{
		{
			name:      "dealer draws to 21",
			deck:      "Kh Qd 6c 5s Td",
			amountWon: 0,
			outcome:   OutcomeLoss,
			dealer:    21,
		},
		{
			name:      "dealer busts",
			deck:      "Kh Qd 6c 5s 5h Kc",
			amountWon: 200,
			outcome:   OutcomeWin,
			dealer:    26,
		},
		{
			name:      "dealer stops at 17 and loses",
			deck:      "Kh Qd 6c 5s 6h",
			amountWon: 200,
			outcome:   OutcomeWin,
			dealer:    17,
		},
		{
			name:      "dealer draws to 20 and pushes",
			deck:      "Kh Qd 6c 5s 9h",
			amountWon: 100,
			outcome:   OutcomePush,
			dealer:    20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := stackedEngine(t, tt.deck)
			s, err := e.StartGame(100, "alice", "c")
			require.NoError(t, err)
			require.Equal(t, 20, s.PlayerValue().Best())
			require.Equal(t, 11, s.DealerValue().Best())

			s, err = e.PerformGameAction("alice", Stand)
			require.NoError(t, err)

			assert.Equal(t, StageDone, s.Stage)
			assert.Equal(t, tt.amountWon, s.AmountWon)
			assert.Equal(t, tt.outcome, s.Outcome)
			assert.Equal(t, tt.dealer, s.DealerValue().Best())
			assert.GreaterOrEqual(t, s.DealerValue().Best(), DealerStandsOn)
			requireCardCount(t, s)
		})
	}
}

func TestStandLowerTotalLoses(t *testing.T) {
	t.Parallel()
	e := stackedEngine(t, "Th 8d Kc 9s")

	_, err := e.StartGame(30, "alice", "c")
	require.NoError(t, err)

	s, err := e.PerformGameAction("alice", Stand)
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.AmountWon)
	assert.Equal(t, OutcomeLoss, s.Outcome)
	assert.Equal(t, int64(-30), s.Net())
}

func TestQuitAlwaysSurrenders(t *testing.T) {
	t.Parallel()
	// Player 20 against dealer 16: ahead, but quitting forfeits.
	e := stackedEngine(t, "Kh Qd 7c 9s")

	_, err := e.StartGame(60, "alice", "c")
	require.NoError(t, err)

	s, err := e.PerformGameAction("alice", Quit)
	require.NoError(t, err)

	assert.True(t, s.Surrendered)
	assert.Equal(t, int64(0), s.AmountWon)
	assert.Equal(t, StageDone, s.Stage)
	assert.Equal(t, OutcomeSurrender, s.Outcome)
	assert.Len(t, s.DealerCards, 2)
}

func TestNaturals(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		deck      string
		opts      []Option
		bet       int64
		amountWon int64
		outcome   Outcome
	}{
		{
			name:      "double natural pushes",
			deck:      "As Kh Ad Qc",
			bet:       50,
			amountWon: 50,
			outcome:   OutcomePush,
		},
		{
			name:      "player natural pays even money by default",
			deck:      "As Kh 9d 7c",
			bet:       50,
			amountWon: 100,
			outcome:   OutcomeBlackjack,
		},
		{
			name:      "player natural pays three to two when configured",
			deck:      "As Kh 9d 7c",
			opts:      []Option{WithNaturalPayout(ThreeToTwo)},
			bet:       50,
			amountWon: 125,
			outcome:   OutcomeBlackjack,
		},
		{
			name:      "three to two rounds down",
			deck:      "As Kh 9d 7c",
			opts:      []Option{WithNaturalPayout(ThreeToTwo)},
			bet:       5,
			amountWon: 12,
			outcome:   OutcomeBlackjack,
		},
		{
			name:      "dealer natural beats the player",
			deck:      "9s 7h Ad Kc",
			bet:       50,
			amountWon: 0,
			outcome:   OutcomeLoss,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := stackedEngine(t, tt.deck, tt.opts...)
			s, err := e.StartGame(tt.bet, "alice", "c")
			require.NoError(t, err)

			assert.Equal(t, StageDone, s.Stage)
			assert.Equal(t, tt.amountWon, s.AmountWon)
			assert.Equal(t, tt.outcome, s.Outcome)
			assert.False(t, s.Surrendered)

			_, err = e.PerformGameAction("alice", Hit)
			assert.ErrorIs(t, err, ErrNoActiveGame)
		})
	}
}

func TestActionWithoutGameIsBenignMiss(t *testing.T) {
	t.Parallel()
	e := NewEngine(randutil.New(1))

	s, err := e.PerformGameAction("nobody", Hit)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrNoActiveGame)
}

func TestActionAfterDoneIsNoOp(t *testing.T) {
	t.Parallel()
	e := stackedEngine(t, "Kh Qd 7c 9s")

	_, err := e.StartGame(10, "alice", "c")
	require.NoError(t, err)
	done, err := e.PerformGameAction("alice", Quit)
	require.NoError(t, err)

	for _, a := range []Action{Hit, Stand, Quit} {
		s, err := e.PerformGameAction("alice", a)
		assert.Nil(t, s)
		assert.ErrorIs(t, err, ErrNoActiveGame)
	}

	current, ok := e.Game("alice")
	require.True(t, ok)
	assert.Equal(t, done, current)
}

func TestUnknownActionLeavesGameUntouched(t *testing.T) {
	t.Parallel()
	e := stackedEngine(t, "Kh 2d 7c 9s")

	before, err := e.StartGame(10, "alice", "c")
	require.NoError(t, err)

	_, err = e.PerformGameAction("alice", Action(42))
	assert.ErrorIs(t, err, ErrUnknownAction)

	after, ok := e.Game("alice")
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestEndGameAllowsRestart(t *testing.T) {
	t.Parallel()
	e := stackedEngine(t, "Kh Qd 7c 9s")

	_, err := e.StartGame(10, "alice", "c")
	require.NoError(t, err)
	_, err = e.PerformGameAction("alice", Stand)
	require.NoError(t, err)

	e.EndGame("alice")
	_, ok := e.Game("alice")
	assert.False(t, ok)
	assert.Equal(t, 0, e.ActiveGames())

	s, err := e.StartGame(10, "alice", "c")
	require.NoError(t, err)
	assert.Equal(t, StageInProgress, s.Stage)
}

func TestEndGameUnknownPlayer(t *testing.T) {
	t.Parallel()
	e := NewEngine(randutil.New(1))
	e.EndGame("nobody")
	assert.Equal(t, 0, e.ActiveGames())
}

func TestSnapshotIsIndependent(t *testing.T) {
	t.Parallel()
	e := stackedEngine(t, "2h 3d Kc 7s 4c")

	s, err := e.StartGame(10, "alice", "c")
	require.NoError(t, err)
	s.PlayerCards[0] = cards.NewCard(cards.Ace, cards.Spades)
	s.Bet = 1_000_000

	current, ok := e.Game("alice")
	require.True(t, ok)
	assert.Equal(t, cards.NewCard(cards.Two, cards.Hearts), current.PlayerCards[0])
	assert.Equal(t, int64(10), current.Bet)
}

func TestTimestamps(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	var calls atomic.Int64
	clock := func() time.Time {
		return start.Add(time.Duration(calls.Add(1)) * time.Second)
	}
	e := stackedEngine(t, "Kh Qd 7c 9s", WithClock(clock))

	s, err := e.StartGame(10, "alice", "c")
	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Second), s.StartedAt)
	assert.True(t, s.EndedAt.IsZero())

	s, err = e.PerformGameAction("alice", Stand)
	require.NoError(t, err)
	assert.Equal(t, start.Add(2*time.Second), s.EndedAt)
}

func TestConcurrentStartForSamePlayer(t *testing.T) {
	t.Parallel()
	e := NewEngine(randutil.New(5))

	const attempts = 64
	var (
		wg        sync.WaitGroup
		successes atomic.Int64
		rejected  atomic.Int64
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := e.StartGame(10, "alice", fmt.Sprintf("chan-%d", i))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrGameInProgress):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), successes.Load())
	assert.Equal(t, int64(attempts-1), rejected.Load())
	assert.Equal(t, 1, e.ActiveGames())
}

func TestConcurrentPlayersAreIndependent(t *testing.T) {
	t.Parallel()
	e := NewEngine(randutil.New(8))

	var g errgroup.Group
	for i := 0; i < 32; i++ {
		player := fmt.Sprintf("player-%d", i)
		g.Go(func() error {
			for round := 0; round < 20; round++ {
				s, err := e.StartGame(5, player, "c")
				if err != nil {
					return err
				}
				for !s.Done() {
					action := Hit
					if s.PlayerValue().Best() >= 17 {
						action = Stand
					}
					if s, err = e.PerformGameAction(player, action); err != nil {
						return err
					}
				}
				if s.PlayerID != player {
					return fmt.Errorf("got state for %s, want %s", s.PlayerID, player)
				}
				e.EndGame(player)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 0, e.ActiveGames())
}
