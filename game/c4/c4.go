package c4

import (
	"github.com/azplay/azplay/game"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

// Board is a (rows, cols) view over a flat board.
type Board struct {
	data *tensor.Dense
	it   [][]game.Colour
	n    int // how many to be considered a win?
}

func newBoard(backing []game.Colour, rows, cols, n int) *Board {
	data := tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(backing))
	iter, err := native.Matrix(data)
	if err != nil {
		panic(err)
	}
	it := iter.([][]game.Colour)
	return &Board{
		data: data,
		it:   it,
		n:    n,
	}
}

// landing returns the row a piece dropped into col would come to rest on.
func (b *Board) landing(col int) (row int, err error) {
	if col < 0 || col >= len(b.it[0]) {
		return -1, errors.Errorf("column %d does not exist", col)
	}
	for row = len(b.it) - 1; row >= 0; row-- {
		if b.it[row][col] == game.None {
			return row, nil
		}
	}
	return -1, errors.Errorf("column %d is full", col)
}

// connected counts the pieces of the same colour as (row, col) along (dr, dc) in both directions.
func (b *Board) connected(row, col, dr, dc int) int {
	rows, cols := len(b.it), len(b.it[0])
	c := b.it[row][col]
	count := 1
	for y, x := row+dr, col+dc; y >= 0 && y < rows && x >= 0 && x < cols && b.it[y][x] == c; y, x = y+dr, x+dc {
		count++
	}
	for y, x := row-dr, col-dc; y >= 0 && y < rows && x >= 0 && x < cols && b.it[y][x] == c; y, x = y-dr, x-dc {
		count++
	}
	return count
}

// checkWin checks whether the piece at (row, col) is part of a winning line.
func (b *Board) checkWin(row, col int) bool {
	if b.it[row][col] == game.None {
		return false
	}
	return b.connected(row, col, 1, 0) >= b.n || // vertical
		b.connected(row, col, 0, 1) >= b.n || // horizontal
		b.connected(row, col, 1, 1) >= b.n || // top left to bottom right
		b.connected(row, col, 1, -1) >= b.n // top right to bottom left
}
