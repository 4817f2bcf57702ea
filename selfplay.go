package azplay

import (
	"context"
	"sync"

	"github.com/azplay/azplay/game"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Episode plays one game of the agent against itself, and returns the examples of the game and the final state.
//
// Every position is recorded with the search's visit distribution. Once the game is over, the value of each
// example is filled in from the perspective of the player to move: 1 for the winner, -1 for the loser and
// drawValue when the game is drawn.
func Episode(ctx context.Context, g game.Game, agent *Agent, aug Augmenter, drawValue float32) ([]Example, *game.State, error) {
	var examples []Example
	var movers []game.Player

	s := g.InitialState()
	for !s.Terminal() {
		if err := ctx.Err(); err != nil {
			return nil, s, errors.WithStack(err)
		}
		move, res, err := agent.Move(ctx, s)
		if err != nil {
			return nil, s, errors.WithMessagef(err, "self play at move %d", s.MoveNumber())
		}
		if res == nil {
			return nil, s, errors.Errorf("Agent %v does not search", agent.Name())
		}
		examples = append(examples, Example{
			Board:  agent.Enc(s),
			Policy: res.Policy,
		})
		movers = append(movers, s.ToMove())

		if s, err = s.Play(move); err != nil {
			return nil, s, err
		}
	}

	_, winner := s.Ended()
	for i := range examples {
		switch {
		case winner == game.Nobody:
			examples[i].Value = drawValue
		case movers[i] == winner:
			examples[i].Value = 1
		default:
			examples[i].Value = -1
		}
	}

	if aug == nil {
		return examples, s, nil
	}
	augmented := make([]Example, 0, len(examples))
	for _, ex := range examples {
		augmented = append(augmented, aug(ex)...)
	}
	return augmented, s, nil
}

// SelfPlay plays n games of the current neural network against itself, with up to Workers games in parallel.
//
// Examples are returned in the order of the games. If a game fails or ctx is cancelled, the examples of the
// games that were completed are returned along with the error.
func (a *AZ) SelfPlay(ctx context.Context, n int) ([]Example, error) {
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = a.rand.Uint64()
	}

	results := make([][]Example, n)
	done := make([]bool, n)
	var mu sync.Mutex // guards the observer

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.Workers)
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			agent := NewAgent("self", a.oracle, a.MCTSConf, a.Encoder, a.mctsOpts(seeds[i])...)
			examples, final, err := Episode(ctx, a.game, agent, a.Augmenter, a.MCTSConf.DrawValue)
			if err != nil {
				return errors.WithMessagef(err, "game %d", i)
			}
			results[i], done[i] = examples, true

			_, winner := final.Ended()
			a.log.Debug().Int("generation", a.epoch).Int("game", i).Stringer("winner", winner).Int("moves", final.MoveNumber()).Msg("Self play game")
			if a.Observer != nil {
				mu.Lock()
				a.Observer(i, final, examples)
				mu.Unlock()
			}
			return nil
		})
	}
	err := eg.Wait()

	var retVal []Example
	var games int
	for i := range results {
		if done[i] {
			retVal = append(retVal, results[i]...)
			games++
		}
	}
	if err != nil {
		a.log.Warn().Err(err).Int("completed", games).Int("games", n).Msg("Self play stopped")
	}
	return retVal, err
}
