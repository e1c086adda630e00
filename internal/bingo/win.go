package bingo

// Cell is a (row, col) coordinate pair on a card grid.
type Cell [2]int

// lines enumerates the 12 winning lines of a card in scan order:
// the five columns, the five rows, then the two diagonals. The order is
// only used to pick which line gets highlighted for the client.
func lines() [][]Cell {
	out := make([][]Cell, 0, 2*Size+2)
	for col := 0; col < Size; col++ {
		line := make([]Cell, Size)
		for row := 0; row < Size; row++ {
			line[row] = Cell{row, col}
		}
		out = append(out, line)
	}
	for row := 0; row < Size; row++ {
		line := make([]Cell, Size)
		for col := 0; col < Size; col++ {
			line[col] = Cell{row, col}
		}
		out = append(out, line)
	}
	diagDown := make([]Cell, Size)
	diagUp := make([]Cell, Size)
	for i := 0; i < Size; i++ {
		diagDown[i] = Cell{i, i}
		diagUp[i] = Cell{i, Size - 1 - i}
	}
	return append(out, diagDown, diagUp)
}

func marked(c Card, cell Cell, called map[int]bool) bool {
	row, col := cell[0], cell[1]
	if row == freeRow && col == freeCol {
		return true
	}
	return called[c.Grid[row][col]]
}

func calledSet(called []int) map[int]bool {
	set := make(map[int]bool, len(called))
	for _, n := range called {
		set[n] = true
	}
	return set
}

// IsWinning reports whether any column, row or diagonal of the card is fully
// covered by the called numbers. The free cell always counts as marked.
func IsWinning(c Card, called []int) bool {
	_, ok := WinningPattern(c, called)
	return ok
}

// WinningPattern returns the coordinates of the first complete line in scan
// order (columns, rows, top-left diagonal, top-right diagonal). The second
// return is false when no line is complete.
func WinningPattern(c Card, called []int) ([]Cell, bool) {
	set := calledSet(called)
	for _, line := range lines() {
		complete := true
		for _, cell := range line {
			if !marked(c, cell, set) {
				complete = false
				break
			}
		}
		if complete {
			return line, true
		}
	}
	return nil, false
}
