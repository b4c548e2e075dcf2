package cards

import (
	rand "math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCard(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input   string
		want    Card
		wantErr bool
	}{
		{input: "As", want: NewCard(Ace, Spades)},
		{input: "Th", want: NewCard(Ten, Hearts)},
		{input: "10h", want: NewCard(Ten, Hearts)},
		{input: "kd", want: NewCard(King, Diamonds)},
		{input: "2C", want: NewCard(Two, Clubs)},
		{input: "Xs", wantErr: true},
		{input: "Ax", wantErr: true},
		{input: "A", wantErr: true},
		{input: "100s", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCard(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCardString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "A♠", NewCard(Ace, Spades).String())
	assert.Equal(t, "10♥", NewCard(Ten, Hearts).String())
	assert.Equal(t, "Th", NewCard(Ten, Hearts).Compact())
	assert.Equal(t, "Q♦ 7♣", FormatCards(MustParseCards("Qd 7c")))
}

func TestRankPoints(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1, Ace.Points())
	assert.Equal(t, 10, King.Points())
	assert.Equal(t, 10, Jack.Points())
	assert.Equal(t, 10, Ten.Points())
	assert.Equal(t, 9, Nine.Points())
	assert.Equal(t, 2, Two.Points())
}

func TestNewDeckHasAllCards(t *testing.T) {
	t.Parallel()
	d := NewDeck(rand.New(rand.NewPCG(1, 2)))
	require.Equal(t, DeckSize, d.Remaining())

	seen := make(map[Card]bool)
	for d.Remaining() > 0 {
		c, err := d.Draw()
		require.NoError(t, err)
		require.True(t, c.Valid())
		require.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, DeckSize)

	_, err := d.Draw()
	assert.ErrorIs(t, err, ErrEmptyDeck)
}

func TestNewDeckDeterministicWithSeed(t *testing.T) {
	t.Parallel()
	a := NewDeck(rand.New(rand.NewPCG(42, 7)))
	b := NewDeck(rand.New(rand.NewPCG(42, 7)))
	c := NewDeck(rand.New(rand.NewPCG(43, 7)))

	var sameAB, sameAC = true, true
	for i := 0; i < DeckSize; i++ {
		ca, _ := a.Draw()
		cb, _ := b.Draw()
		cc, _ := c.Draw()
		sameAB = sameAB && ca == cb
		sameAC = sameAC && ca == cc
	}
	assert.True(t, sameAB, "same seed should shuffle identically")
	assert.False(t, sameAC, "different seeds should shuffle differently")
}

func TestStackedDeck(t *testing.T) {
	t.Parallel()
	top := MustParseCards("As Kd 6c 5h")
	d, err := NewStackedDeck(top...)
	require.NoError(t, err)
	require.Equal(t, DeckSize, d.Remaining())

	for _, want := range top {
		got, err := d.Draw()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	seen := map[Card]bool{}
	for _, c := range top {
		seen[c] = true
	}
	for d.Remaining() > 0 {
		c, err := d.Draw()
		require.NoError(t, err)
		require.False(t, seen[c])
		seen[c] = true
	}
	assert.Len(t, seen, DeckSize)
}

func TestStackedDeckRejectsDuplicates(t *testing.T) {
	t.Parallel()
	_, err := NewStackedDeck(MustParseCards("As As")...)
	assert.Error(t, err)
}
