package mnk

import (
	"math/rand"
	"testing"

	"github.com/azplay/azplay/game"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	X = game.Black
	O = game.White
	Z = game.None
)

func play(t *testing.T, g game.Game, actions ...game.Action) *game.State {
	t.Helper()
	s := g.InitialState()
	for _, a := range actions {
		var err error
		s, err = s.Play(a)
		require.NoError(t, err, "playing %d", a)
	}
	return s
}

func TestTicTacToe(t *testing.T) {
	g := TicTacToe()
	s, err := game.FromBoard(g, []game.Colour{
		X, O, X,
		O, X, O,
		O, O, X,
	}, Nought)
	require.NoError(t, err)
	assert.True(t, g.CheckWin(s, 0))
	assert.True(t, g.CheckWin(s, 4))
	assert.True(t, g.CheckWin(s, 8))
	assert.False(t, g.CheckWin(s, 2))

	s, err = game.FromBoard(g, []game.Colour{
		X, O, O,
		X, O, X,
		O, X, X,
	}, Cross)
	require.NoError(t, err)
	assert.True(t, g.CheckWin(s, 6), "expected O to have a diagonal through 6")
	assert.False(t, g.CheckWin(s, 0))
}

func TestCheckWinEmptyCell(t *testing.T) {
	g := TicTacToe()
	s, err := game.FromBoard(g, []game.Colour{
		X, X, Z,
		O, O, Z,
		Z, Z, Z,
	}, Cross)
	require.NoError(t, err)
	assert.False(t, g.CheckWin(s, 2))
	assert.False(t, g.CheckWin(s, game.NoAction))
}

func TestGomoku(t *testing.T) {
	g := New(7, 7, 5)
	s, err := game.FromBoard(g, []game.Colour{
		Z, X, Z, Z, Z, Z, Z,
		Z, Z, X, Z, Z, Z, Z,
		Z, Z, Z, X, Z, Z, Z,
		Z, Z, Z, Z, X, Z, Z,
		Z, Z, Z, Z, Z, X, Z,
		Z, Z, Z, Z, Z, X, Z,
		Z, Z, Z, Z, Z, X, Z,
	}, Nought)
	require.NoError(t, err)
	assert.True(t, g.CheckWin(s, 3*7+4))
	assert.False(t, g.CheckWin(s, 6*7+5), "the column only has three")

	s, err = game.FromBoard(g, []game.Colour{
		Z, Z, Z, Z, Z, Z, Z,
		Z, Z, Z, Z, Z, O, Z,
		Z, Z, Z, Z, O, Z, Z,
		Z, Z, Z, O, Z, Z, Z,
		Z, Z, O, Z, Z, Z, Z,
		Z, O, Z, Z, Z, Z, Z,
		Z, Z, Z, Z, Z, Z, Z,
	}, Cross)
	require.NoError(t, err)
	assert.True(t, g.CheckWin(s, 5*7+1))
}

func TestTopRowWin(t *testing.T) {
	g := TicTacToe()
	s := play(t, g, 0, 4, 1, 5, 2)

	assert.True(t, g.CheckWin(s, 2))
	assert.Equal(t, game.ActionOutcome{Terminal: true, Outcome: game.Win}, g.ActionOutcome(s, 2))
	assert.Equal(t, game.ActionOutcome{Terminal: true, Outcome: game.Win}, s.Outcome())

	ended, winner := s.Ended()
	assert.True(t, ended)
	assert.Equal(t, Cross, winner)
	assert.Equal(t, 1, s.Score(Cross))
	assert.Equal(t, 0, s.Score(Nought))

	_, err := s.Play(8)
	assert.True(t, game.IsIllegalMove(err), "no moves after a win")
}

func TestDraw(t *testing.T) {
	g := TicTacToe()
	// X O X
	// X O O
	// O X X
	s := play(t, g, 0, 1, 2, 4, 3, 5, 7, 6, 8)

	assert.Empty(t, s.ValidActions())
	assert.Equal(t, game.ActionOutcome{Terminal: true, Outcome: game.Draw}, s.Outcome())
	ended, winner := s.Ended()
	assert.True(t, ended)
	assert.Equal(t, game.Nobody, winner)
}

func TestIllegalOverwrite(t *testing.T) {
	g := TicTacToe()
	s := play(t, g, 4)
	before := s.Board()

	_, err := s.Play(4)
	var ime *game.IllegalMoveError
	require.ErrorAs(t, err, &ime)
	assert.Equal(t, game.Occupied, ime.Reason)

	_, err = s.Apply(0, Cross)
	require.ErrorAs(t, err, &ime)
	assert.Equal(t, game.NotYourTurn, ime.Reason)

	_, err = s.Play(9)
	require.ErrorAs(t, err, &ime)
	assert.Equal(t, game.OutOfRange, ime.Reason)

	if diff := cmp.Diff(before, s.Board()); diff != "" {
		t.Errorf("failed moves changed the board (-want +got):\n%s", diff)
	}
}

// TestValidActionInvariant plays random games and checks that every position accounts for
// either a piece or a valid action.
func TestValidActionInvariant(t *testing.T) {
	g := TicTacToe()
	r := rand.New(rand.NewSource(1337))
	for i := 0; i < 200; i++ {
		s := g.InitialState()
		for {
			var occupied int
			board := s.Board()
			for _, c := range board {
				if c != game.None {
					occupied++
				}
			}
			if !s.Terminal() {
				assert.Equal(t, g.ActionSpace(), occupied+len(s.ValidActions()))
			}
			for _, a := range s.ValidActions() {
				assert.Equal(t, game.None, board[a])
			}

			a, err := s.RandomAction(r)
			if err != nil {
				break
			}
			if s, err = s.Play(a); err != nil {
				t.Fatal(err)
			}
		}
		assert.True(t, s.Terminal())
	}
}

func TestCloneIsolation(t *testing.T) {
	g := TicTacToe()
	s := play(t, g, 0, 4)
	c := s.Clone()
	next, err := c.Play(8)
	require.NoError(t, err)

	assert.Equal(t, game.None, s.At(8))
	assert.Equal(t, game.Colour(Cross), next.At(8))
	assert.True(t, s.Eq(c))
	assert.False(t, s.Eq(next))
	assert.Equal(t, s.ValidActions(), c.ValidActions())
}

func TestEncode(t *testing.T) {
	g := TicTacToe()
	s := play(t, g, 0) // O to move
	enc := s.Encode()
	require.Len(t, enc, 27)

	want := []float32{
		// opponent (X)
		1, 0, 0, 0, 0, 0, 0, 0, 0,
		// empty
		0, 1, 1, 1, 1, 1, 1, 1, 1,
		// own (O)
		0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
	if diff := cmp.Diff(want, enc); diff != "" {
		t.Errorf("encoding mismatch (-want +got):\n%s", diff)
	}
}

func TestOpponent(t *testing.T) {
	g := TicTacToe()
	for _, p := range []game.Player{Cross, Nought} {
		assert.Equal(t, p, g.Opponent(g.Opponent(p)))
		assert.NotEqual(t, p, g.Opponent(p))
	}
	assert.Panics(t, func() { g.Opponent(game.Nobody) })
}
