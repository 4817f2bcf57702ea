package c4

import (
	"testing"

	"github.com/azplay/azplay/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	X = game.Black
	O = game.White
	Z = game.None
)

func TestCheckWin(t *testing.T) {
	g := Connect4()
	s, err := game.FromBoard(g, []game.Colour{
		X, Z, Z, Z, Z, Z, Z,
		O, Z, Z, Z, Z, Z, Z,
		O, Z, Z, Z, Z, Z, Z,
		X, Z, Z, Z, Z, Z, Z,
		O, O, Z, Z, X, Z, X,
		X, O, Z, O, X, Z, X,
	}, game.O)
	require.NoError(t, err)
	for a := game.Action(0); int(a) < g.ActionSpace(); a++ {
		assert.False(t, g.CheckWin(s, a), "%d is not part of a line\n%s", a, s)
	}

	s, err = game.FromBoard(g, []game.Colour{
		Z, Z, Z, Z, Z, Z, Z,
		Z, Z, Z, Z, Z, Z, Z,
		Z, Z, Z, X, Z, Z, Z,
		Z, Z, X, O, Z, Z, Z,
		Z, X, O, O, Z, Z, Z,
		X, O, O, X, Z, Z, Z,
	}, game.O)
	require.NoError(t, err)
	assert.True(t, g.CheckWin(s, 2*7+3))
	assert.True(t, g.CheckWin(s, 5*7+0))
	assert.False(t, g.CheckWin(s, 5*7+1))
}

func TestGravity(t *testing.T) {
	g := Connect4()
	s := g.InitialState()

	valid := s.ValidActions()
	require.Len(t, valid, 7)
	for i, a := range valid {
		assert.Equal(t, game.Action(5*7+i), a, "only the bottom row is playable")
	}

	_, err := s.Play(0)
	var ime *game.IllegalMoveError
	require.ErrorAs(t, err, &ime)
	assert.Equal(t, game.Unsupported, ime.Reason)

	a, err := Drop(s, 3)
	require.NoError(t, err)
	assert.Equal(t, game.Action(38), a)
	s, err = s.Play(a)
	require.NoError(t, err)

	a, err = Drop(s, 3)
	require.NoError(t, err)
	assert.Equal(t, game.Action(31), a)
	assert.Equal(t, 3, Column(s, a))
	assert.True(t, s.IsLegal(31))
	assert.False(t, s.IsLegal(38))

	_, err = Drop(s, 7)
	assert.Error(t, err)
}

func TestVerticalWin(t *testing.T) {
	g := Connect4()
	s := g.InitialState()
	for _, col := range []int{0, 1, 0, 1, 0, 1, 0} {
		a, err := Drop(s, col)
		require.NoError(t, err)
		s, err = s.Play(a)
		require.NoError(t, err)
	}
	ended, winner := s.Ended()
	assert.True(t, ended)
	assert.Equal(t, game.X, winner)
	assert.Equal(t, game.ActionOutcome{Terminal: true, Outcome: game.Win}, s.Outcome())
}

func TestFullColumn(t *testing.T) {
	g := Connect4()
	s := g.InitialState()
	// alternating pieces never make four in a column
	for i := 0; i < 6; i++ {
		a, err := Drop(s, 6)
		require.NoError(t, err)
		s, err = s.Play(a)
		require.NoError(t, err)
	}
	_, err := Drop(s, 6)
	assert.Error(t, err)
	for _, a := range s.ValidActions() {
		assert.NotEqual(t, 6, Column(s, a))
	}
	assert.Len(t, s.ValidActions(), 6)
}
