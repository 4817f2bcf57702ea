// package mnk implements m,n,k games - a game is played on a MxN board. K in a row to win.
// Tic-tac-toe is the 3,3,3 game.
package mnk

import (
	"fmt"

	"github.com/azplay/azplay/game"
)

var (
	Cross  = game.X
	Nought = game.O
)

var _ game.Game = &MNK{}

// MNK is the rules of an M,N,K game. Any empty position may be played.
type MNK struct {
	m, n, k int
	name    string
}

// New creates a new MNK game
func New(m, n, k int) *MNK {
	return &MNK{m: m, n: n, k: k, name: fmt.Sprintf("%d,%d,%d", m, n, k)}
}

// TicTacToe creates a new MNK game for Tic Tac Toe
func TicTacToe() *MNK { return &MNK{m: 3, n: 3, k: 3, name: "Tic Tac Toe"} }

func (g *MNK) Name() string              { return g.name }
func (g *MNK) BoardSize() (int, int)     { return g.m, g.n }
func (g *MNK) ActionSpace() int          { return g.m * g.n }
func (g *MNK) InitialState() *game.State { return game.NewState(g) }

func (g *MNK) Opponent(p game.Player) game.Player { return game.Opponent(p) }

// Legal always returns true: there are no structural restrictions in an m,n,k game.
func (g *MNK) Legal(board []game.Colour, a game.Action) bool { return true }

func (g *MNK) ValidActionMask(s *game.State) []bool { return s.ValidActionMask() }

// CheckWin checks the row, column and both diagonals that pass through a.
func (g *MNK) CheckWin(s *game.State, a game.Action) bool {
	if a.IsNone() || int(a) >= g.m*g.n {
		return false
	}
	return game.LineThrough(s.Board(), g.m, g.n, int(a), g.k)
}

func (g *MNK) ActionOutcome(s *game.State, a game.Action) game.ActionOutcome {
	return game.Evaluate(g, s, a)
}
