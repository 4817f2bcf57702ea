package azplay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/azplay/azplay/store"
	"github.com/pkg/errors"
)

// Files written in every checkpoint directory.
const (
	ParamsFile   = "params.json"
	ModelFile    = "model.gob"
	ExamplesFile = "examples.parquet"
	StatsFile    = "stats.csv"
)

type params struct {
	Generation int    `json:"generation"`
	Game       string `json:"game"`
	Examples   int    `json:"examples"`
	Config     Config `json:"config"`
}

// CheckpointPath is the directory of the checkpoint of a generation.
func CheckpointPath(dir string, generation int) string {
	return filepath.Join(dir, fmt.Sprintf("gen-%03d", generation))
}

// Checkpoint writes the configuration, the neural network (if it is a Saver), the examples of the last generation
// and the statistics into a directory of dir named after the generation.
func (a *AZ) Checkpoint(dir string, generation int) error {
	path := CheckpointPath(dir, generation)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.WithStack(err)
	}

	p := params{
		Generation: generation,
		Game:       a.game.Name(),
		Examples:   len(a.examples),
		Config:     a.Config,
	}
	bs, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	if err = os.WriteFile(filepath.Join(path, ParamsFile), bs, 0o644); err != nil {
		return errors.WithStack(err)
	}

	if _, ok := a.oracle.(Saver); ok {
		if err = a.Save(filepath.Join(path, ModelFile)); err != nil {
			return errors.WithMessage(err, "Unable to save the neural network")
		}
	}

	if len(a.examples) > 0 {
		rows := make([]store.ExampleRow, len(a.examples))
		for i, ex := range a.examples {
			rows[i] = store.ExampleRow{
				Game:       a.game.Name(),
				Generation: int32(generation),
				Index:      int32(i),
				Board:      ex.Board,
				Policy:     ex.Policy,
				Value:      ex.Value,
			}
		}
		if err = store.WriteExamples(filepath.Join(path, ExamplesFile), rows); err != nil {
			return err
		}
	}

	if err = a.Dump(filepath.Join(path, StatsFile)); err != nil {
		return err
	}
	a.log.Info().Int("generation", generation).Str("path", path).Msg("Checkpoint written")
	return nil
}

// LoadOracle reads the neural network of a checkpoint directory into l.
func LoadOracle(dir string, l Loader) error {
	f, err := os.Open(filepath.Join(dir, ModelFile))
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	return l.Load(f)
}

// LoadExamples reads the examples of every checkpoint found under dir.
func LoadExamples(dir string) ([]Example, error) {
	rows, err := store.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	retVal := make([]Example, len(rows))
	for i, r := range rows {
		retVal[i] = Example{Board: r.Board, Policy: r.Policy, Value: r.Value}
	}
	return retVal, nil
}
