package bingo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckColumnRanges(t *testing.T) {
	deck := NewDeck(50, 7)
	require.Equal(t, 50, deck.Len())

	for id := 0; id < deck.Len(); id++ {
		card, ok := deck.Card(id)
		require.True(t, ok)
		assert.Equal(t, id, card.ID)
		assert.Equal(t, FreeCell, card.Grid[2][2], "center must be the free cell")

		for col := 0; col < Size; col++ {
			seen := map[int]bool{}
			lo, hi := columnRanges[col][0], columnRanges[col][1]
			for row := 0; row < Size; row++ {
				n := card.Grid[row][col]
				if col == 2 && row == 2 {
					continue
				}
				assert.GreaterOrEqual(t, n, lo)
				assert.LessOrEqual(t, n, hi)
				assert.False(t, seen[n], "duplicate %d in column %d of card %d", n, col, id)
				seen[n] = true
			}
		}
	}
}

func TestNewDeckDeterministicBySeed(t *testing.T) {
	a := NewDeck(10, 42)
	b := NewDeck(10, 42)
	c := NewDeck(10, 43)

	same := true
	for i := 0; i < 10; i++ {
		ca, _ := a.Card(i)
		cb, _ := b.Card(i)
		require.Equal(t, ca.Grid, cb.Grid)
		cc, _ := c.Card(i)
		if ca.Grid != cc.Grid {
			same = false
		}
	}
	assert.False(t, same, "different seeds should give different decks")
}

func TestDeckCardOutOfRange(t *testing.T) {
	deck := NewDeck(5, 1)
	_, ok := deck.Card(5)
	assert.False(t, ok)
	_, ok = deck.Card(-1)
	assert.False(t, ok)
}

func TestColumnsRoundTrip(t *testing.T) {
	deck := NewDeck(20, 99)
	for id := 0; id < deck.Len(); id++ {
		card, _ := deck.Card(id)
		cols := card.Columns()

		require.Len(t, cols.N, Size)
		assert.Equal(t, FreeCell, cols.N[2], "free cell must survive formatting")

		grid, err := ParseColumns(cols)
		require.NoError(t, err)
		assert.Equal(t, card.Grid, grid)
	}
}

func TestParseColumnsRejectsBadPayloads(t *testing.T) {
	card, _ := NewDeck(1, 3).Card(0)

	short := card.Columns()
	short.G = short.G[:4]
	_, err := ParseColumns(short)
	assert.Error(t, err)

	outOfRange := card.Columns()
	outOfRange.B = append([]int(nil), outOfRange.B...)
	outOfRange.B[0] = 40
	_, err = ParseColumns(outOfRange)
	assert.Error(t, err)

	noFree := card.Columns()
	noFree.N = append([]int(nil), noFree.N...)
	noFree.N[2] = 33
	_, err = ParseColumns(noFree)
	assert.Error(t, err)
}

func TestLetter(t *testing.T) {
	cases := map[int]string{1: "B", 15: "B", 16: "I", 30: "I", 31: "N", 45: "N", 46: "G", 60: "G", 61: "O", 75: "O", 0: "?", 76: "?"}
	for n, want := range cases {
		assert.Equal(t, want, Letter(n), "letter for %d", n)
	}
}
