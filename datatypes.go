package azplay

import (
	"io"

	dual "github.com/azplay/azplay/dualnet"
	"github.com/azplay/azplay/game"
	"github.com/azplay/azplay/mcts"
	"github.com/pkg/errors"
)

type Config struct {
	Name     string      `json:"name"`
	NNConf   dual.Config `json:"nn"`
	MCTSConf mcts.Config `json:"mcts"`

	Generations     int     `json:"generations"`
	SelfPlayGames   int     `json:"self_play_games"` // games per generation
	Epochs          int     `json:"epochs"`          // passes over the examples per generation
	BatchSize       int     `json:"batch_size"`
	MaxExamples     int     `json:"max_examples"` // maximum number of examples
	ArenaGames      int     `json:"arena_games"`
	UpdateThreshold float64 `json:"update_threshold"`
	Workers         int     `json:"workers"` // self-play games played in parallel
	CheckpointDir   string  `json:"checkpoint_dir,omitempty"`

	// extensions
	Encoder       GameEncoder   `json:"-"`
	OutputEncoder OutputEncoder `json:"-"`
	Augmenter     Augmenter     `json:"-"`
	Observer      Observer      `json:"-"`
}

// DefaultConfig returns a small configuration for g.
func DefaultConfig(g game.Game) Config {
	rows, cols := g.BoardSize()
	nnConf := dual.DefaultConf(rows, cols, g.ActionSpace())
	return Config{
		Name:     g.Name(),
		NNConf:   nnConf,
		MCTSConf: mcts.DefaultConfig(),

		Generations:     10,
		SelfPlayGames:   20,
		Epochs:          5,
		BatchSize:       nnConf.BatchSize,
		MaxExamples:     10000,
		ArenaGames:      10,
		UpdateThreshold: 0.55,
		Workers:         4,
	}
}

// Validate returns a *game.ConfigurationError for the first invalid field.
func (c Config) Validate() error {
	if err := c.MCTSConf.Validate(); err != nil {
		return err
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"Generations", c.Generations},
		{"SelfPlayGames", c.SelfPlayGames},
		{"Epochs", c.Epochs},
		{"BatchSize", c.BatchSize},
		{"Workers", c.Workers},
	} {
		if f.value <= 0 {
			return errors.WithStack(&game.ConfigurationError{Field: f.name, Value: f.value})
		}
	}
	switch {
	case c.MaxExamples < 0:
		return errors.WithStack(&game.ConfigurationError{Field: "MaxExamples", Value: c.MaxExamples})
	case c.ArenaGames < 0:
		return errors.WithStack(&game.ConfigurationError{Field: "ArenaGames", Value: c.ArenaGames})
	case c.UpdateThreshold > 1:
		return errors.WithStack(&game.ConfigurationError{Field: "UpdateThreshold", Value: c.UpdateThreshold})
	case c.NNConf.BatchSize > 0 && c.BatchSize != c.NNConf.BatchSize:
		// the network's training graph is built for a fixed batch
		return errors.WithStack(&game.ConfigurationError{Field: "BatchSize", Value: c.BatchSize})
	}
	return nil
}

// GameEncoder encodes a game state as a slice of floats
type GameEncoder func(s *game.State) []float32

// OutputEncoder encodes the entire meta state as whatever.
//
// An example OutputEncoder is the GifEncoder. Another example would be a logger.
type OutputEncoder interface {
	Encode(ms game.MetaState) error
	Flush() error
}

// Augmenter takes an example, and creates more examples from it.
type Augmenter func(a Example) []Example

// Observer is called after every self-play game with the final state and the examples the game produced.
type Observer func(gameNumber int, final *game.State, examples []Example)

// Example is a representation of an example.
type Example struct {
	Board  []float32
	Policy []float32
	Value  float32
}

// Inferer is anything that can infer given an input.
type Inferer interface {
	Infer(a []float32) (policy []float32, value float32, err error)
	io.Closer
}

// Trainer is anything that can learn from a batch of examples.
type Trainer interface {
	Train(batch []Example) error
}

// Oracle is the policy/value function used by the search, which can be improved by training.
// Infer may be called concurrently. Train is never called concurrently with Infer.
type Oracle interface {
	Inferer
	Trainer
}

// Cloner is an Oracle that can be copied, so that a trained copy can be compared with the original.
type Cloner interface {
	Clone() (Oracle, error)
}

// Saver is an Oracle that can write its weights.
type Saver interface {
	Save(w io.Writer) error
}

// Loader is an Oracle that can read weights written by a Saver.
type Loader interface {
	Load(r io.Reader) error
}

// ExecLogger is anything that can return the execution log.
type ExecLogger interface {
	ExecLog() string
}
