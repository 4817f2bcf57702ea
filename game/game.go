package game

import (
	"fmt"
)

type Colour int32

const (
	None Colour = iota
	Black
	White
)

func (cl Colour) Format(s fmt.State, c rune) {
	switch c {
	case 'v': // used in debug
		switch cl {
		case None:
			fmt.Fprint(s, "None")
		case Black:
			fmt.Fprint(s, "Black")
		case White:
			fmt.Fprint(s, "White")
		}
	case 's': // used in board games
		switch cl {
		case None:
			fmt.Fprint(s, "·")
		case Black:
			fmt.Fprint(s, "X")
		case White:
			fmt.Fprint(s, "O")
		}
	}
}

// Player represents a player. It's also a colour. Black always moves first.
type Player Colour

const (
	Nobody = Player(None)
	X      = Player(Black)
	O      = Player(White)
)

func (p Player) Format(s fmt.State, c rune) { Colour(p).Format(s, c) }

// String returns the piece the player places: X, O or ·.
func (p Player) String() string { return fmt.Sprintf("%s", Colour(p)) }

// Opponent returns the other player. It panics on Nobody.
func Opponent(p Player) Player {
	switch p {
	case X:
		return O
	case O:
		return X
	}
	panic("Unreachable")
}

// Action is a board position in row-major order:
//   - 0 represents the top left
//   - cols-1 represents the top right
//   - cols represents (1, 0)
type Action int32

// NoAction is the move of a root state: nothing has been played yet.
const NoAction Action = -1

// IsNone returns true when the action does not refer to a position.
func (a Action) IsNone() bool { return a < 0 }

// Outcome is the result of an action, from the perspective of the player who made it.
type Outcome byte

const (
	Undecided Outcome = iota
	Win
	Loss
	Draw
)

func (o Outcome) String() string {
	switch o {
	case Undecided:
		return "Undecided"
	case Win:
		return "Win"
	case Loss:
		return "Loss"
	case Draw:
		return "Draw"
	}
	return fmt.Sprintf("Outcome(%d)", byte(o))
}

// Value maps the outcome to a scalar value. Draws are worth drawValue.
func (o Outcome) Value(drawValue float32) float32 {
	switch o {
	case Win:
		return 1
	case Loss:
		return -1
	case Draw:
		return drawValue
	}
	return 0
}

// ActionOutcome is whether an action ended the game, and how.
type ActionOutcome struct {
	Terminal bool
	Outcome  Outcome
}

// Game is the rules of a two player, perfect information, zero sum board game.
// A Game is immutable and may be shared by any number of goroutines.
type Game interface {
	Name() string
	BoardSize() (rows, cols int)
	ActionSpace() int

	// InitialState returns the empty board, with X to move.
	InitialState() *State
	Opponent(p Player) Player

	// Legal reports whether a is a structurally legal placement on board.
	// Occupancy and range are checked by the caller.
	Legal(board []Colour, a Action) bool
	ValidActionMask(s *State) []bool

	// CheckWin reports whether the piece at a completes a winning line.
	CheckWin(s *State, a Action) bool
	ActionOutcome(s *State, a Action) ActionOutcome
}

// Evaluate is the outcome rule shared by the games in this module: a win if the action
// completes a line, a draw if nobody can move afterwards.
func Evaluate(g Game, s *State, a Action) ActionOutcome {
	if g.CheckWin(s, a) {
		return ActionOutcome{Terminal: true, Outcome: Win}
	}
	if len(s.valid) == 0 {
		return ActionOutcome{Terminal: true, Outcome: Draw}
	}
	return ActionOutcome{}
}

// MetaState is a game in progress, as seen by output encoders.
type MetaState interface {
	Name() string // name of the game
	Epoch() int
	GameNumber() int
	Score(p Player) float64
	State() *State
}
