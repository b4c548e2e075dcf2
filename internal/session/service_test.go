package session

import (
	"context"
	"testing"

	"github.com/lox/blackjackforbots/cards"
	"github.com/lox/blackjackforbots/internal/blackjack"
	"github.com/lox/blackjackforbots/internal/history"
	"github.com/lox/blackjackforbots/internal/randutil"
	"github.com/lox/blackjackforbots/internal/statistics"
	"github.com/lox/blackjackforbots/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     *Service
	wallet  *wallet.MemoryStore
	history *history.MemoryRecorder
	stats   *statistics.Collector
}

// newFixture builds a service whose every game is dealt from a deck with
// top on top, in deal order player, player, dealer, dealer, then draws.
func newFixture(t *testing.T, top string, opts ...Option) *fixture {
	t.Helper()
	topCards := cards.MustParseCards(top)
	engine := blackjack.NewEngine(randutil.New(1), blackjack.WithDeckSource(func() *cards.Deck {
		d, err := cards.NewStackedDeck(topCards...)
		require.NoError(t, err)
		return d
	}))

	f := &fixture{
		wallet:  wallet.NewMemoryStore(100),
		history: &history.MemoryRecorder{},
		stats:   statistics.NewCollector(),
	}
	opts = append([]Option{WithHistory(f.history), WithStatistics(f.stats)}, opts...)
	f.svc = NewService(engine, f.wallet, opts...)
	return f
}

func (f *fixture) balance(t *testing.T, playerID string) int64 {
	t.Helper()
	b, err := f.wallet.Balance(context.Background(), playerID)
	require.NoError(t, err)
	return b
}

func TestStartAndStandWin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "Th 9c 8s 9d")

	res, err := f.svc.Start(ctx, "alice", "lobby", 10)
	require.NoError(t, err)
	assert.False(t, res.State.Done())
	assert.Equal(t, int64(90), res.Balance)

	res, err = f.svc.Act(ctx, "alice", blackjack.Stand)
	require.NoError(t, err)
	require.True(t, res.State.Done())
	assert.Equal(t, blackjack.OutcomeWin, res.State.Outcome)
	assert.Equal(t, int64(110), res.Balance)
	assert.Equal(t, 0, f.svc.Engine().ActiveGames(), "settled games are removed")

	recs := f.history.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"stand"}, recs[0].Actions)
	assert.Equal(t, int64(110), recs[0].BalanceAfter)
	assert.False(t, recs[0].TimedOut)

	txs := f.wallet.Transactions("alice")
	require.Len(t, txs, 2)
	assert.Equal(t, ReasonBet, txs[0].Reason)
	assert.Equal(t, ReasonPayout, txs[1].Reason)
	assert.Equal(t, int64(20), txs[1].Delta)

	stats, ok := f.stats.Player("alice")
	require.True(t, ok)
	assert.Equal(t, 1, stats.Wins)
}

func TestNaturalSettlesOnStart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "As Kd 9s 7d")

	res, err := f.svc.Start(ctx, "alice", "", 10)
	require.NoError(t, err)
	require.True(t, res.State.Done())
	assert.Equal(t, blackjack.OutcomeBlackjack, res.State.Outcome)
	assert.Equal(t, int64(110), res.Balance)
	assert.Equal(t, 0, f.svc.Engine().ActiveGames())
	assert.Empty(t, f.history.Records()[0].Actions)

	_, err = f.svc.Act(ctx, "alice", blackjack.Hit)
	assert.ErrorIs(t, err, blackjack.ErrNoActiveGame)
}

func TestHitBust(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "Th 6c 9s 8d Kh")

	_, err := f.svc.Start(ctx, "alice", "", 10)
	require.NoError(t, err)

	res, err := f.svc.Act(ctx, "alice", blackjack.Hit)
	require.NoError(t, err)
	require.True(t, res.State.Done())
	assert.Equal(t, blackjack.OutcomeBust, res.State.Outcome)
	assert.Equal(t, int64(90), res.Balance)
	assert.Len(t, f.wallet.Transactions("alice"), 1, "nothing is credited on a loss")
}

func TestHitContinues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "2h 3c 9s 8d 4h")

	_, err := f.svc.Start(ctx, "alice", "", 10)
	require.NoError(t, err)

	res, err := f.svc.Act(ctx, "alice", blackjack.Hit)
	require.NoError(t, err)
	assert.False(t, res.State.Done())
	assert.Equal(t, int64(90), res.Balance)
	assert.Equal(t, 1, f.svc.Engine().ActiveGames())
}

func TestTimeoutSurrenders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "Th 6c 9s 8d")

	_, err := f.svc.Start(ctx, "alice", "", 10)
	require.NoError(t, err)

	res, err := f.svc.Timeout(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, res.State.Surrendered)
	assert.Equal(t, int64(0), res.State.AmountWon)
	assert.Equal(t, int64(90), res.Balance)

	rec := f.history.Records()[0]
	assert.True(t, rec.TimedOut)
	assert.Equal(t, []string{"quit"}, rec.Actions)

	_, err = f.svc.Timeout(ctx, "alice")
	assert.ErrorIs(t, err, blackjack.ErrNoActiveGame)
}

func TestStartRejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("bet limits", func(t *testing.T) {
		f := newFixture(t, "Th 6c 9s 8d", WithBetLimits(5, 50))
		_, err := f.svc.Start(ctx, "alice", "", 2)
		assert.ErrorIs(t, err, ErrBetOutOfRange)
		_, err = f.svc.Start(ctx, "alice", "", 51)
		assert.ErrorIs(t, err, ErrBetOutOfRange)
		assert.Equal(t, int64(100), f.balance(t, "alice"))
	})

	t.Run("non-positive bet", func(t *testing.T) {
		f := newFixture(t, "Th 6c 9s 8d")
		_, err := f.svc.Start(ctx, "alice", "", 0)
		assert.ErrorIs(t, err, blackjack.ErrInvalidBet)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		f := newFixture(t, "Th 6c 9s 8d")
		_, err := f.svc.Start(ctx, "alice", "", 101)
		assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)
		assert.Equal(t, 0, f.svc.Engine().ActiveGames())
	})

	t.Run("game in progress", func(t *testing.T) {
		f := newFixture(t, "Th 6c 9s 8d")
		first, err := f.svc.Start(ctx, "alice", "", 10)
		require.NoError(t, err)
		_, err = f.svc.Start(ctx, "alice", "", 10)
		assert.ErrorIs(t, err, blackjack.ErrGameInProgress)
		assert.Equal(t, int64(90), f.balance(t, "alice"), "second bet is not debited")

		state, ok := f.svc.Game("alice")
		require.True(t, ok)
		assert.Equal(t, first.State.ID, state.ID)
	})
}

func TestInvariantViolationRefunds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// a deck missing one card breaks the card-count invariant on deal
	engine := blackjack.NewEngine(randutil.New(1), blackjack.WithDeckSource(func() *cards.Deck {
		d, err := cards.NewStackedDeck(cards.MustParseCards("2c Th 6c 9s 8d")...)
		require.NoError(t, err)
		_, err = d.Draw()
		require.NoError(t, err)
		return d
	}))
	store := wallet.NewMemoryStore(100)
	svc := NewService(engine, store)

	_, err := svc.Start(ctx, "alice", "", 10)
	require.ErrorIs(t, err, blackjack.ErrEngineInvariant)

	b, err := store.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), b)
	assert.Equal(t, 0, engine.ActiveGames())

	txs := store.Transactions("alice")
	require.Len(t, txs, 2)
	assert.Equal(t, ReasonRefund, txs[1].Reason)
}

func TestActWithoutGame(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "Th 6c 9s 8d")
	_, err := f.svc.Act(context.Background(), "nobody", blackjack.Stand)
	assert.ErrorIs(t, err, blackjack.ErrNoActiveGame)
}
