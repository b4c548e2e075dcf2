package simulator

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lox/blackjackforbots/internal/blackjack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAggregatesAllPlayers(t *testing.T) {
	res, err := Run(context.Background(), Config{
		Players:  4,
		Games:    200,
		Bet:      10,
		Strategy: "basic",
		Seed:     12345,
	})
	require.NoError(t, err)

	assert.Equal(t, 800, res.Total.Games)
	assert.Len(t, res.Players, 4)
	for i := 0; i < 4; i++ {
		assert.Equal(t, 200, res.Players[PlayerID(i)].Games)
	}
	assert.Equal(t, int64(8000), res.Total.Wagered)
	require.NoError(t, res.Total.Validate())
	assert.Greater(t, res.GamesPerSecond(), 0.0)
}

func TestRunIsReproducible(t *testing.T) {
	cfg := Config{Players: 3, Games: 100, Strategy: "random", Seed: 99}

	a, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	b, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, a.Total, b.Total)
	assert.Equal(t, a.Players, b.Players)

	cfg.Seed = 100
	c, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a.Players, c.Players)
}

func TestRunShared(t *testing.T) {
	res, err := Run(context.Background(), Config{
		Players:  8,
		Games:    50,
		Strategy: "dealer",
		Seed:     1,
		Shared:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, 400, res.Total.Games)
}

func TestRunThreeToTwoPaysMore(t *testing.T) {
	base := Config{Players: 2, Games: 2000, Strategy: "basic", Seed: 7}
	even, err := Run(context.Background(), base)
	require.NoError(t, err)

	base.NaturalPayout = blackjack.ThreeToTwo
	bonus, err := Run(context.Background(), base)
	require.NoError(t, err)

	// same seed, same cards: only the naturals pay differently
	assert.Equal(t, even.Total.Blackjacks, bonus.Total.Blackjacks)
	assert.Equal(t, even.Total.Net+int64(even.Total.Blackjacks)*5, bonus.Total.Net)
}

func TestRunStopsWhenBroke(t *testing.T) {
	res, err := Run(context.Background(), Config{
		Games:           1000,
		Bet:             10,
		StartingBalance: 10,
		Strategy:        "dealer",
		Seed:            3,
	})
	require.NoError(t, err)
	assert.Less(t, res.Total.Games, 1000)
}

func TestRunRejectsBadConfig(t *testing.T) {
	res, err := Run(context.Background(), Config{Players: 2, Games: 10, Strategy: "martingale"})
	assert.Nil(t, res)
	assert.ErrorContains(t, err, `simulator: unknown strategy "martingale"`)

	_, err = Run(context.Background(), Config{Games: 0})
	assert.Error(t, err)
}

func TestRunTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Config{Games: 10, Timeout: time.Second})
	assert.Error(t, err)
}

func TestDotsMonitor(t *testing.T) {
	var buf bytes.Buffer
	res, err := Run(context.Background(), Config{
		Players: 2,
		Games:   50,
		Seed:    7,
		Monitor: NewDotsMonitor(&buf),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 100, strings.Count(out, dot))
	assert.NotContains(t, out, "\x1b[", "no colour when not writing to a terminal")
	lines := strings.Split(out, "\n")
	assert.Equal(t, 80, strings.Count(lines[0], dot))
	assert.Contains(t, out, fmt.Sprintf("Completed 100 games (net %+d)", res.Total.Net))
}
