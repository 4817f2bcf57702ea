package azplay

import (
	"bytes"
	"context"
	"testing"

	"github.com/azplay/azplay/game"
	"github.com/azplay/azplay/game/mnk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is an OutputEncoder that remembers what it was given.
type recorder struct {
	names   []string
	games   []int
	moves   []game.Action
	flushed int
}

func (r *recorder) Encode(ms game.MetaState) error {
	r.names = append(r.names, ms.Name())
	r.games = append(r.games, ms.GameNumber())
	r.moves = append(r.moves, ms.State().LastAction())
	return nil
}

func (r *recorder) Flush() error {
	r.flushed++
	return nil
}

func lowestMove(s *game.State) (game.Action, error) { return s.ValidActions()[0], nil }

func TestArenaPlay(t *testing.T) {
	g := mnk.TicTacToe()
	a := NewHuman("a", lowestMove)
	b := NewHuman("b", lowestMove)
	arena := NewArena(g, a, b, "", 1337)
	assert.Equal(t, g.Name(), arena.Name())

	rec := new(recorder)
	winner, err := arena.Play(context.Background(), rec)
	require.NoError(t, err)

	// X plays 0, 2, 4 and 6, which completes a diagonal
	assert.Equal(t, game.X, winner)
	assert.Equal(t, []game.Action{0, 1, 2, 3, 4, 5, 6}, rec.moves)
	assert.Equal(t, 7, arena.State().MoveNumber())

	xAgent, oAgent := a, b
	if a.Player == game.O {
		xAgent, oAgent = b, a
	}
	assert.Equal(t, float32(1), xAgent.Wins)
	assert.Equal(t, float32(1), oAgent.Loss)
	assert.Zero(t, xAgent.Loss+xAgent.Draw+oAgent.Wins+oAgent.Draw)

	var buf bytes.Buffer
	require.NoError(t, arena.Log(&buf))
	assert.Contains(t, buf.String(), "Game over")
}

func TestArenaRetriesIllegalInput(t *testing.T) {
	var mistakes int
	clumsy := func(s *game.State) (game.Action, error) {
		if s.MoveNumber() == 1 && mistakes == 0 {
			mistakes++
			return s.LastAction(), nil
		}
		return lowestMove(s)
	}
	arena := NewArena(mnk.TicTacToe(), NewHuman("a", clumsy), NewHuman("b", clumsy), "clumsy", 1)
	winner, err := arena.Play(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, mistakes)
	assert.Equal(t, game.X, winner)

	var buf bytes.Buffer
	require.NoError(t, arena.Log(&buf))
	assert.Contains(t, buf.String(), "Illegal move")
}

func TestArenaPlayN(t *testing.T) {
	a := NewAgent("a", UniformOracle{ActionSpace: 9}, greedyConf(), nil)
	b := NewAgent("b", UniformOracle{ActionSpace: 9}, greedyConf(), nil)
	arena := NewArena(mnk.TicTacToe(), a, b, "greedy", 42)
	arena.epoch = 3

	rec := new(recorder)
	aWins, bWins, err := arena.PlayN(context.Background(), 4, rec)
	require.NoError(t, err)

	// greedy players always let X win
	assert.Equal(t, float32(4), aWins+bWins)
	assert.Equal(t, aWins, b.Loss)
	assert.Equal(t, bWins, a.Loss)
	assert.Zero(t, a.Draw)
	assert.Len(t, rec.moves, 4*7)
	assert.Equal(t, 3, rec.games[len(rec.games)-1])
	assert.Equal(t, "greedy", rec.names[0])
	assert.Equal(t, 3, arena.Epoch())

	// statistics are reset
	aWins, bWins, err = arena.PlayN(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, float32(1), aWins+bWins)
}

func TestArenaCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	arena := NewArena(mnk.TicTacToe(), NewHuman("a", lowestMove), NewHuman("b", lowestMove), "", 1)
	_, err := arena.Play(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
