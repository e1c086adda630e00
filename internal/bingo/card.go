// Package bingo holds the card deck and win evaluation logic shared by all rooms.
package bingo

import (
	"fmt"
	"math/rand"
)

const (
	// Size is the side length of a card grid.
	Size = 5

	// MaxNumber is the highest callable number in the game.
	MaxNumber = 75

	// FreeCell is the sentinel value of the permanent center free cell.
	FreeCell = 0

	freeRow = 2
	freeCol = 2
)

var letters = [Size]string{"B", "I", "N", "G", "O"}

// columnRanges gives the inclusive number range of each labeled column.
var columnRanges = [Size][2]int{{1, 15}, {16, 30}, {31, 45}, {46, 60}, {61, 75}}

// Letter returns the column letter a called number belongs to.
func Letter(n int) string {
	for col, r := range columnRanges {
		if n >= r[0] && n <= r[1] {
			return letters[col]
		}
	}
	return "?"
}

// Card is a fixed 5x5 bingo grid. Grid is row-major: Grid[row][col].
// The center cell is always FreeCell. Cards are immutable after deck creation.
type Card struct {
	ID   int       `json:"card_id"`
	Grid [Size][Size]int `json:"grid"`
}

// Columns is the client-facing card payload, the grid split into the five
// labeled columns of five values each, free cell kept as 0.
type Columns struct {
	B []int `json:"B"`
	I []int `json:"I"`
	N []int `json:"N"`
	G []int `json:"G"`
	O []int `json:"O"`
}

// Columns formats the card for transmission.
func (c Card) Columns() Columns {
	var cols [Size][]int
	for col := 0; col < Size; col++ {
		cols[col] = make([]int, Size)
		for row := 0; row < Size; row++ {
			cols[col][row] = c.Grid[row][col]
		}
	}
	return Columns{B: cols[0], I: cols[1], N: cols[2], G: cols[3], O: cols[4]}
}

// ParseColumns rebuilds a grid from a column payload, validating shape and
// number ranges. The inverse of Card.Columns for any deck card.
func ParseColumns(cols Columns) ([Size][Size]int, error) {
	var grid [Size][Size]int
	byCol := [Size][]int{cols.B, cols.I, cols.N, cols.G, cols.O}
	for col, nums := range byCol {
		if len(nums) != Size {
			return grid, fmt.Errorf("column %s has %d values, want %d", letters[col], len(nums), Size)
		}
		for row, n := range nums {
			if col == freeCol && row == freeRow {
				if n != FreeCell {
					return grid, fmt.Errorf("center cell is %d, want free cell %d", n, FreeCell)
				}
			} else if n < columnRanges[col][0] || n > columnRanges[col][1] {
				return grid, fmt.Errorf("number %d out of range for column %s", n, letters[col])
			}
			grid[row][col] = n
		}
	}
	return grid, nil
}

// Deck is the fixed set of pre-generated cards shared across rooms.
// Created once at process start, immutable thereafter.
type Deck struct {
	cards []Card
}

// NewDeck generates size cards from the given seed. The same seed always
// yields the same deck, which lets every process instance agree on card ids.
func NewDeck(size int, seed int64) *Deck {
	rng := rand.New(rand.NewSource(seed))
	cards := make([]Card, size)
	for i := range cards {
		cards[i] = generateCard(i, rng)
	}
	return &Deck{cards: cards}
}

func generateCard(id int, rng *rand.Rand) Card {
	c := Card{ID: id}
	for col, r := range columnRanges {
		nums := rng.Perm(r[1]-r[0]+1)[:Size]
		for row, n := range nums {
			c.Grid[row][col] = r[0] + n
		}
	}
	c.Grid[freeRow][freeCol] = FreeCell
	return c
}

// Card returns the deck card with the given id.
func (d *Deck) Card(id int) (Card, bool) {
	if id < 0 || id >= len(d.cards) {
		return Card{}, false
	}
	return d.cards[id], true
}

// Len reports the deck size.
func (d *Deck) Len() int {
	return len(d.cards)
}
