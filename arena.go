package azplay

import (
	"bytes"
	"context"
	"io"

	"github.com/azplay/azplay/game"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
)

// Arena is where two agents play games against each other. An Arena implements game.MetaState.
type Arena struct {
	r     *rand.Rand
	game  game.Game
	state *game.State
	A, B  *Agent

	// state
	currentPlayer *Agent
	buf           bytes.Buffer
	logger        zerolog.Logger

	name       string
	epoch      int // training generation
	gameNumber int // which game is this in
}

// NewArena makes an arena given a game. The seed decides which agent plays first in each game.
func NewArena(g game.Game, a, b *Agent, name string, seed uint64) *Arena {
	if name == "" {
		name = g.Name()
	}
	retVal := &Arena{
		r:     rand.New(rand.NewSource(seed)),
		game:  g,
		state: g.InitialState(),
		A:     a,
		B:     b,
		name:  name,
	}
	retVal.logger = zerolog.New(&retVal.buf).With().Timestamp().Logger()
	return retVal
}

// Play plays a game, and returns a winner. If it is a draw, the returned player is game.Nobody.
// The output encoder, if any, is called after every move.
func (a *Arena) Play(ctx context.Context, enc OutputEncoder) (winner game.Player, err error) {
	a.state = a.game.InitialState()
	if a.r.Intn(2) == 0 {
		a.A.Player, a.B.Player = game.X, game.O
		a.currentPlayer = a.A
	} else {
		a.A.Player, a.B.Player = game.O, game.X
		a.currentPlayer = a.B
	}
	a.logger.Info().Int("game", a.gameNumber).Str("x", a.currentPlayer.name).Msg("Playing")

	var ended bool
	for ended, winner = a.state.Ended(); !ended; ended, winner = a.state.Ended() {
		if err = ctx.Err(); err != nil {
			return game.Nobody, errors.WithStack(err)
		}
		var best game.Action
		if best, _, err = a.currentPlayer.Move(ctx, a.state); err != nil {
			return game.Nobody, errors.WithMessagef(err, "%v to move in game %d", a.currentPlayer.name, a.gameNumber)
		}
		var next *game.State
		if next, err = a.state.Apply(best, a.currentPlayer.Player); err != nil {
			if a.currentPlayer.Input != nil {
				// people make mistakes. Let them try again.
				a.logger.Warn().Err(err).Str("agent", a.currentPlayer.name).Msg("Illegal move")
				continue
			}
			return game.Nobody, err
		}
		a.logger.Debug().Str("agent", a.currentPlayer.name).Stringer("player", a.currentPlayer.Player).Int32("move", int32(best)).Msg("Best move")
		a.state = next
		a.switchPlayer()
		if enc != nil {
			if err = enc.Encode(a); err != nil {
				return game.Nobody, errors.WithMessage(err, "Unable to encode game")
			}
		}
	}

	var winningAgent *Agent
	switch {
	case winner == game.Nobody:
		a.A.Draw++
		a.B.Draw++
	case winner == a.A.Player:
		a.A.Wins++
		a.B.Loss++
		winningAgent = a.A
	case winner == a.B.Player:
		a.B.Wins++
		a.A.Loss++
		winningAgent = a.B
	}
	ev := a.logger.Info().Int("game", a.gameNumber).Stringer("winner", winner)
	if winningAgent != nil {
		ev = ev.Str("agent", winningAgent.name)
	}
	ev.Msg("Game over")
	return winner, nil
}

// PlayN plays n games and returns the wins of A and B.
func (a *Arena) PlayN(ctx context.Context, n int, enc OutputEncoder) (aWins, bWins float32, err error) {
	a.A.resetStats()
	a.B.resetStats()
	for a.gameNumber = 0; a.gameNumber < n; a.gameNumber++ {
		if _, err = a.Play(ctx, enc); err != nil {
			return a.A.Wins, a.B.Wins, err
		}
	}
	return a.A.Wins, a.B.Wins, nil
}

func (a *Arena) Epoch() int                  { return a.epoch }
func (a *Arena) GameNumber() int             { return a.gameNumber }
func (a *Arena) Name() string                { return a.name }
func (a *Arena) Score(p game.Player) float64 { return float64(a.state.Score(p)) }
func (a *Arena) State() *game.State          { return a.state }

// Log writes the log of the arena to w.
func (a *Arena) Log(w io.Writer) error {
	_, err := w.Write(a.buf.Bytes())
	return err
}

func (a *Arena) switchPlayer() {
	switch a.currentPlayer {
	case a.A:
		a.currentPlayer = a.B
	case a.B:
		a.currentPlayer = a.A
	}
}
