package dual

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// batcher cuts consecutive batches out of tensors that share their first dimension.
// The first error sticks.
type batcher struct {
	size int
	err  error
}

// batch returns views of the rows of batch i of every tensor.
func (b *batcher) batch(i int, ts ...*tensor.Dense) []*tensor.Dense {
	start := i * b.size
	retVal := make([]*tensor.Dense, len(ts))
	for j, t := range ts {
		if b.err != nil {
			return nil
		}
		var v tensor.View
		if v, b.err = t.Slice(G.S(start, start+b.size)); b.err != nil {
			b.err = errors.Wrapf(b.err, "Unable to slice batch %d out of %v", i, t.Shape())
			return nil
		}
		retVal[j] = v.(*tensor.Dense)
	}
	return retVal
}
