package c4

import (
	"github.com/azplay/azplay/game"
)

var (
	_ game.Game = &Game{}
)

// Game is the rules of Connect-N on a (rows, cols) board. Pieces fall to the lowest empty
// row of a column. Actions are board positions, so a column has at most one legal action.
type Game struct {
	rows, cols, n int
}

// New creates a new game with a board of (rows,cols) and N to win (connect4 being 4 to win)
func New(rows, cols, N int) *Game { return &Game{rows: rows, cols: cols, n: N} }

// Connect4 is the standard 6×7 game.
func Connect4() *Game { return New(6, 7, 4) }

func (g *Game) Name() string              { return "Connect Four" }
func (g *Game) BoardSize() (int, int)     { return g.rows, g.cols }
func (g *Game) ActionSpace() int          { return g.rows * g.cols }
func (g *Game) InitialState() *game.State { return game.NewState(g) }

func (g *Game) Opponent(p game.Player) game.Player { return game.Opponent(p) }

// Legal checks that a is on the bottom row, or directly above an occupied position.
func (g *Game) Legal(board []game.Colour, a game.Action) bool {
	if a.IsNone() || int(a) >= len(board) {
		return false
	}
	below := int(a) + g.cols
	return below >= len(board) || board[below] != game.None
}

func (g *Game) ValidActionMask(s *game.State) []bool { return s.ValidActionMask() }

func (g *Game) CheckWin(s *game.State, a game.Action) bool {
	if a.IsNone() || int(a) >= g.rows*g.cols {
		return false
	}
	b := newBoard(s.Board(), g.rows, g.cols, g.n)
	return b.checkWin(int(a)/g.cols, int(a)%g.cols)
}

func (g *Game) ActionOutcome(s *game.State, a game.Action) game.ActionOutcome {
	return game.Evaluate(g, s, a)
}

// Drop returns the action that drops a piece into col.
func Drop(s *game.State, col int) (game.Action, error) {
	rows, cols := s.BoardSize()
	b := newBoard(s.Board(), rows, cols, 0)
	row, err := b.landing(col)
	if err != nil {
		return game.NoAction, err
	}
	return game.Action(row*cols + col), nil
}

// Column returns the column of an action.
func Column(s *game.State, a game.Action) int {
	_, col := s.Coord(a)
	return col
}
