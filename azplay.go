package azplay

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/azplay/azplay/game"
	"github.com/azplay/azplay/mcts"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

// AZ is the top level structure and the entry point of the API.
// It it a wrapper around the MTCS and the neural network that composes the algorithm.
// AZ stands for AlphaZero
type AZ struct {
	Config
	Statistics

	game   game.Game
	oracle Oracle
	rand   *rand.Rand
	log    zerolog.Logger

	epoch    int
	examples []Example // examples of the last generation
}

// Option configures an AZ.
type Option func(a *AZ)

// WithLogger sets the logger. The search trees log to it when tracing is enabled.
func WithLogger(l zerolog.Logger) Option { return func(a *AZ) { a.log = l } }

// WithSeed makes self play, shuffling and arena games reproducible, given a deterministic oracle.
func WithSeed(seed uint64) Option { return func(a *AZ) { a.rand = rand.New(rand.NewSource(seed)) } }

// New AlphaZero structure. It takes a game (the board, rules, etc.), the neural network to start from,
// and a configuration to apply to the MCTS and the training.
func New(g game.Game, o Oracle, conf Config, opts ...Option) (*AZ, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if o == nil {
		return nil, errors.WithStack(&game.ConfigurationError{Field: "Oracle", Value: o})
	}
	if conf.Encoder == nil {
		conf.Encoder = EncodePlanes
	}
	if conf.Name == "" {
		conf.Name = g.Name()
	}
	retVal := &AZ{
		Config:     conf,
		Statistics: makeStatistics(),
		game:       g,
		oracle:     o,
		rand:       rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
		log:        log.Logger,
	}
	for _, opt := range opts {
		opt(retVal)
	}
	return retVal, nil
}

// Oracle returns the current neural network.
func (a *AZ) Oracle() Oracle { return a.oracle }

// Examples returns the examples of the last generation.
func (a *AZ) Examples() []Example { return a.examples }

// Generation returns the current generation.
func (a *AZ) Generation() int { return a.epoch }

func (a *AZ) mctsOpts(seed uint64) []mcts.Option {
	opts := []mcts.Option{mcts.WithSeed(seed)}
	if a.log.GetLevel() == zerolog.TraceLevel && zerolog.GlobalLevel() == zerolog.TraceLevel {
		opts = append(opts, mcts.WithLogger(a.log))
	}
	return opts
}

// Learn runs the configured number of generations. Each generation self plays SelfPlayGames games, and then
// trains the neural network from the self play examples.
//
// When the oracle is a Cloner and UpdateThreshold is positive, a trained copy has to beat the current network
// in the arena before replacing it.
func (a *AZ) Learn(ctx context.Context) error {
	for a.epoch = 0; a.epoch < a.Generations; a.epoch++ {
		if err := a.generation(ctx); err != nil {
			return errors.WithMessagef(err, "generation %d", a.epoch)
		}
	}
	return nil
}

func (a *AZ) generation(ctx context.Context) (err error) {
	start := time.Now()
	var ex []Example
	if ex, err = a.SelfPlay(ctx, a.SelfPlayGames); err != nil {
		return err
	}
	if a.MaxExamples > 0 && len(ex) > a.MaxExamples {
		shuffleExamples(ex, a.rand)
		ex = ex[:a.MaxExamples]
	}
	a.examples = ex
	a.log.Info().Int("generation", a.epoch).Int("examples", len(ex)).Dur("took", time.Since(start)).Msg("Self play done")

	candidate := a.oracle
	cloner, gated := a.oracle.(Cloner)
	gated = gated && a.UpdateThreshold > 0 && a.ArenaGames > 0
	if gated {
		if candidate, err = cloner.Clone(); err != nil {
			return errors.WithMessage(err, "Unable to clone the neural network")
		}
	}
	if err = a.train(candidate, ex); err != nil {
		if gated {
			candidate.Close()
		}
		return err
	}

	name := fmt.Sprintf("%s-%d", a.Name, a.epoch)
	if !gated {
		a.update(name, 0, 0, 0)
		return a.checkpoint()
	}

	arena := a.newArena(a.oracle, candidate)
	var incumbentWins, candidateWins float32
	if incumbentWins, candidateWins, err = arena.PlayN(ctx, a.ArenaGames, a.OutputEncoder); err != nil {
		candidate.Close()
		return err
	}
	a.log.Info().Int("generation", a.epoch).
		Float32("incumbent", incumbentWins).
		Float32("candidate", candidateWins).
		Float32("draws", arena.B.Draw).
		Msg("Arena done")

	a.update(name, arena.B.Wins, arena.B.Loss, arena.B.Draw)
	if decisive := incumbentWins + candidateWins; decisive > 0 && float64(candidateWins/decisive) > a.UpdateThreshold {
		a.log.Info().Int("generation", a.epoch).Msg("Candidate accepted")
		if err = a.oracle.Close(); err != nil {
			return err
		}
		a.oracle = candidate
	} else {
		a.log.Info().Int("generation", a.epoch).Msg("Candidate rejected")
		if err = candidate.Close(); err != nil {
			return err
		}
	}
	return a.checkpoint()
}

func (a *AZ) train(o Trainer, ex []Example) error {
	if rem := len(ex) % a.BatchSize; rem != 0 {
		a.log.Debug().Int("dropped", rem).Int("batch_size", a.BatchSize).Msg("Incomplete batch dropped")
	}
	batches, err := Train(o, ex, a.Epochs, a.BatchSize, a.rand)
	if err != nil {
		return err
	}
	ev := a.log.Info().Int("generation", a.epoch).Int("batches", batches)
	if c, ok := o.(interface{ Cost() float32 }); ok {
		ev = ev.Float32("cost", c.Cost())
	}
	ev.Msg("Training done")
	return nil
}

// newArena sets up the incumbent as A and the candidate as B.
func (a *AZ) newArena(incumbent, candidate Inferer) *Arena {
	conf := a.MCTSConf
	A := NewAgent("incumbent", incumbent, conf, a.Encoder, a.mctsOpts(a.rand.Uint64())...)
	B := NewAgent("candidate", candidate, conf, a.Encoder, a.mctsOpts(a.rand.Uint64())...)
	arena := NewArena(a.game, A, B, a.Name, a.rand.Uint64())
	arena.epoch = a.epoch
	return arena
}

func (a *AZ) checkpoint() error {
	if a.CheckpointDir == "" {
		return nil
	}
	return a.Checkpoint(a.CheckpointDir, a.epoch)
}

// Save the neural network into filename. The neural network has to be a Saver.
func (a *AZ) Save(filename string) error {
	s, ok := a.oracle.(Saver)
	if !ok {
		return errors.Errorf("%T cannot be saved", a.oracle)
	}
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	if err = s.Save(f); err != nil {
		f.Close()
		return err
	}
	return errors.WithStack(f.Close())
}

// Load the neural network from a file written by Save. The neural network has to be a Loader.
func (a *AZ) Load(filename string) error {
	l, ok := a.oracle.(Loader)
	if !ok {
		return errors.Errorf("%T cannot be loaded", a.oracle)
	}
	f, err := os.Open(filename)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	return l.Load(f)
}
