package azplay

import (
	"fmt"

	"github.com/azplay/azplay/game"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// Train fits o on the examples for the given number of epochs. Every epoch shuffles the examples and
// feeds them in consecutive batches of batchSize. The trailing examples that do not fill a batch are dropped.
func Train(o Trainer, examples []Example, epochs, batchSize int, r *rand.Rand) (batches int, err error) {
	if batchSize <= 0 {
		return 0, errors.WithStack(&game.ConfigurationError{Field: "BatchSize", Value: batchSize})
	}
	if len(examples) == 0 {
		return 0, nil
	}
	for epoch := 0; epoch < epochs; epoch++ {
		shuffleExamples(examples, r)
		for start := 0; start+batchSize <= len(examples); start += batchSize {
			batch := examples[start : start+batchSize]
			if err = validateBatch(batch); err != nil {
				return batches, err
			}
			if err = o.Train(batch); err != nil {
				return batches, errors.WithMessagef(err, "epoch %d, batch %d", epoch, start/batchSize)
			}
			batches++
		}
	}
	return batches, nil
}

// validateBatch checks that every example in the batch has the shape of the first one, and that values are finite.
func validateBatch(batch []Example) error {
	boardSize, actionSpace := len(batch[0].Board), len(batch[0].Policy)
	for i, ex := range batch {
		switch {
		case len(ex.Board) != boardSize || boardSize == 0:
			return errors.WithStack(&game.OracleContractError{Reason: fmt.Sprintf("example %d has a board of %d. Expected %d", i, len(ex.Board), boardSize)})
		case len(ex.Policy) != actionSpace || actionSpace == 0:
			return errors.WithStack(&game.OracleContractError{Reason: fmt.Sprintf("example %d has a policy of %d. Expected %d", i, len(ex.Policy), actionSpace)})
		case math32.IsNaN(ex.Value) || math32.IsInf(ex.Value, 0):
			return errors.WithStack(&game.OracleContractError{Reason: fmt.Sprintf("example %d has a value of %v", i, ex.Value)})
		}
	}
	return nil
}

func shuffleExamples(examples []Example, r *rand.Rand) {
	for i := range examples {
		j := r.Intn(i + 1)
		examples[i], examples[j] = examples[j], examples[i]
	}
}
