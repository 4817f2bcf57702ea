package game

import (
	"fmt"
	"hash/fnv"

	"github.com/pkg/errors"
)

// Zobrist is a type representing a "zobrist" hash.
// The word "Zobrist" is put in quotes because only Go and chess uses zobrist hashing.
// Placement games have no captures, so an FNV hash of the board does the job.
type Zobrist uint32

// State is a position of a Game. The board holds absolute players: X is always Black.
//
// A State is never modified once it has been handed out. Apply returns a new State,
// and a State holds no reference to the State it was derived from.
type State struct {
	g          Game
	board      []Colour
	rows, cols int

	toMove     Player
	last       Action
	moveNumber int
	valid      []Action
	score      [3]int
	outcome    ActionOutcome
}

// NewState creates the empty board of g, with X to move.
func NewState(g Game) *State {
	rows, cols := g.BoardSize()
	s := &State{
		g:      g,
		board:  make([]Colour, rows*cols),
		rows:   rows,
		cols:   cols,
		toMove: X,
		last:   NoAction,
	}
	s.valid = s.computeValid()
	return s
}

// FromBoard sets up a position of g. The board is copied. Scores start at zero and the
// position has no last action, so its outcome is Undecided even if a line is on the board.
func FromBoard(g Game, board []Colour, toMove Player) (*State, error) {
	rows, cols := g.BoardSize()
	if len(board) != rows*cols {
		return nil, errors.WithStack(&ConfigurationError{Field: "board", Value: len(board)})
	}
	if toMove != X && toMove != O {
		return nil, errors.WithStack(&ConfigurationError{Field: "toMove", Value: toMove})
	}
	s := &State{
		g:      g,
		board:  make([]Colour, len(board)),
		rows:   rows,
		cols:   cols,
		toMove: toMove,
		last:   NoAction,
	}
	for i, c := range board {
		if c != None {
			s.moveNumber++
		}
		s.board[i] = c
	}
	s.valid = s.computeValid()
	if len(s.valid) == 0 {
		s.outcome = ActionOutcome{Terminal: true, Outcome: Draw}
	}
	return s, nil
}

func (s *State) Game() Game            { return s.g }
func (s *State) BoardSize() (int, int) { return s.rows, s.cols }
func (s *State) ActionSpace() int      { return len(s.board) }

// Board returns a copy of the board.
func (s *State) Board() []Colour {
	retVal := make([]Colour, len(s.board))
	copy(retVal, s.board)
	return retVal
}

// At returns the occupant of the given position.
func (s *State) At(pos int) Colour { return s.board[pos] }

// Coord converts an action into (row, col).
func (s *State) Coord(a Action) (row, col int) { return int(a) / s.cols, int(a) % s.cols }

// ToMove returns the player who is to make the next move.
func (s *State) ToMove() Player { return s.toMove }

// LastAction returns the action that led to this state, or NoAction.
func (s *State) LastAction() Action { return s.last }

// LastMover returns the player who made the last action, or Nobody.
func (s *State) LastMover() Player {
	if s.last.IsNone() {
		return Nobody
	}
	return s.g.Opponent(s.toMove)
}

// MoveNumber returns count of moves so far that led to this point.
func (s *State) MoveNumber() int { return s.moveNumber }

// Score returns the number of games won by p along this line of play.
func (s *State) Score(p Player) int { return s.score[p] }

// ValidActions returns the legal actions in ascending order.
func (s *State) ValidActions() []Action {
	retVal := make([]Action, len(s.valid))
	copy(retVal, s.valid)
	return retVal
}

// ValidActionMask returns a mask over the action space.
func (s *State) ValidActionMask() []bool {
	retVal := make([]bool, len(s.board))
	for _, a := range s.valid {
		retVal[a] = true
	}
	return retVal
}

// IsLegal checks if the player to move may play a.
func (s *State) IsLegal(a Action) bool {
	if s.outcome.Terminal || a < 0 || int(a) >= len(s.board) {
		return false
	}
	return s.board[a] == None && s.g.Legal(s.board, a)
}

// Outcome returns the outcome of the last action, from the perspective of LastMover.
func (s *State) Outcome() ActionOutcome { return s.outcome }

// Terminal returns true when the game is over.
func (s *State) Terminal() bool { return s.outcome.Terminal }

// Ended checks if the game has ended. If it has, who is the winner?
func (s *State) Ended() (ended bool, winner Player) {
	if !s.outcome.Terminal {
		return false, Nobody
	}
	switch s.outcome.Outcome {
	case Win:
		return true, s.LastMover()
	case Loss:
		return true, s.toMove
	}
	return true, Nobody
}

// Apply returns the state where p has played a. The receiver is left untouched.
func (s *State) Apply(a Action, p Player) (*State, error) {
	switch {
	case p != X && p != O:
		return nil, illegal(a, p, NoSuchPlayer)
	case s.outcome.Terminal:
		return nil, illegal(a, p, GameOver)
	case p != s.toMove:
		return nil, illegal(a, p, NotYourTurn)
	case a < 0 || int(a) >= len(s.board):
		return nil, illegal(a, p, OutOfRange)
	case s.board[a] != None:
		return nil, illegal(a, p, Occupied)
	case !s.g.Legal(s.board, a):
		return nil, illegal(a, p, Unsupported)
	}

	next := s.Clone()
	next.board[a] = Colour(p)
	next.toMove = s.g.Opponent(p)
	next.last = a
	next.moveNumber++
	next.valid = next.computeValid()
	next.outcome = s.g.ActionOutcome(next, a)
	if next.outcome.Terminal && next.outcome.Outcome == Win {
		next.score[p]++
	}
	return next, nil
}

// Play applies a for the player to move.
func (s *State) Play(a Action) (*State, error) { return s.Apply(a, s.toMove) }

// RandomAction picks a uniformly random legal action.
func (s *State) RandomAction(r interface{ Intn(int) int }) (Action, error) {
	if len(s.valid) == 0 || s.outcome.Terminal {
		return NoAction, &NoLegalActionError{Op: "RandomAction"}
	}
	return s.valid[r.Intn(len(s.valid))], nil
}

// Encode returns the board as three planes of rows×cols, from the perspective of the
// player to move: opponent's pieces, empty positions, own pieces.
func (s *State) Encode() []float32 {
	n := len(s.board)
	retVal := make([]float32, 3*n)
	me, them := Colour(s.toMove), Colour(s.g.Opponent(s.toMove))
	for i, c := range s.board {
		switch c {
		case them:
			retVal[i] = 1
		case None:
			retVal[n+i] = 1
		case me:
			retVal[2*n+i] = 1
		}
	}
	return retVal
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	retVal := *s
	retVal.board = make([]Colour, len(s.board))
	copy(retVal.board, s.board)
	retVal.valid = make([]Action, len(s.valid), len(s.board))
	copy(retVal.valid, s.valid)
	return &retVal
}

// Eq returns true if both states have the same board and the same player to move.
func (s *State) Eq(other *State) bool {
	if other == nil || len(s.board) != len(other.board) || s.toMove != other.toMove {
		return false
	}
	for i := range s.board {
		if s.board[i] != other.board[i] {
			return false
		}
	}
	return true
}

func (s *State) Hash() Zobrist {
	h := fnv.New32a()
	for _, v := range s.board {
		fmt.Fprintf(h, "%v", v)
	}
	return Zobrist(h.Sum32())
}

func (s *State) Format(f fmt.State, c rune) {
	for i, cl := range s.board {
		if i%s.cols == 0 {
			fmt.Fprint(f, "⎢ ")
		}
		fmt.Fprintf(f, "%s ", cl)
		if (i+1)%s.cols == 0 {
			fmt.Fprint(f, "⎥\n")
		}
	}
}

func (s *State) computeValid() []Action {
	retVal := make([]Action, 0, len(s.board))
	for i, c := range s.board {
		if c == None && s.g.Legal(s.board, Action(i)) {
			retVal = append(retVal, Action(i))
		}
	}
	return retVal
}
