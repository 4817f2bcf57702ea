package azplay

import (
	"encoding/gob"
	"io"
	"runtime"
	"sync"

	dual "github.com/azplay/azplay/dualnet"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DualOracle is an Oracle backed by a *dual.Dual. Inference runs on a pool of inference VMs,
// which are rebuilt from the trained weights after training.
type DualOracle struct {
	sync.RWMutex
	nn      *dual.Dual
	trainer *dual.Trainer
	cost    float32

	inferer  chan *dual.Inferencer
	inferers []*dual.Inferencer
	stale    bool
}

// NewDualOracle creates and initializes a neural network with the given configuration.
func NewDualOracle(conf dual.Config) (*DualOracle, error) {
	if !conf.IsValid() {
		return nil, errors.Errorf("Neural network configuration is not valid: %+v", conf)
	}
	nn := dual.New(conf)
	if err := nn.Init(); err != nil {
		return nil, err
	}
	return &DualOracle{nn: nn, stale: true}, nil
}

// Dual returns the underlying neural network.
func (o *DualOracle) Dual() *dual.Dual { return o.nn }

// Cost returns the cost of the last training batch.
func (o *DualOracle) Cost() float32 {
	o.RLock()
	defer o.RUnlock()
	return o.cost
}

// SwitchToInference builds one inference VM per CPU from the current weights.
func (o *DualOracle) SwitchToInference() (err error) {
	o.Lock()
	defer o.Unlock()
	return o.switchToInference()
}

func (o *DualOracle) switchToInference() error {
	if err := o.closeInferers(); err != nil {
		return err
	}
	n := runtime.NumCPU()
	o.inferer = make(chan *dual.Inferencer, n)
	for i := 0; i < n; i++ {
		inf, err := dual.Infer(o.nn, false)
		if err != nil {
			return err
		}
		o.inferers = append(o.inferers, inf)
		o.inferer <- inf
	}
	o.stale = false
	return nil
}

// Infer infers a policy and a value from an encoded board. It is safe for concurrent use.
func (o *DualOracle) Infer(board []float32) (policy []float32, value float32, err error) {
	o.RLock()
	if o.stale {
		o.RUnlock()
		o.Lock()
		if o.stale {
			if err = o.switchToInference(); err != nil {
				o.Unlock()
				return nil, 0, err
			}
		}
		o.Unlock()
		o.RLock()
	}
	defer o.RUnlock()

	inf := <-o.inferer
	policy, value, err = inf.Infer(board)
	o.inferer <- inf
	if err != nil {
		return nil, 0, errors.WithMessage(err, inf.ExecLog())
	}
	return policy, value, nil
}

// Train runs one gradient descent step on a batch, which must have the batch size of the neural network.
func (o *DualOracle) Train(batch []Example) (err error) {
	o.Lock()
	defer o.Unlock()

	conf := o.nn.Config
	if len(batch) != conf.BatchSize {
		return errors.Errorf("Expected a batch of %d. Got %d", conf.BatchSize, len(batch))
	}
	if o.trainer == nil {
		if o.trainer, err = dual.NewTrainer(o.nn); err != nil {
			return err
		}
	}

	inputSize := conf.InputSize()
	xs := make([]float32, 0, len(batch)*inputSize)
	pis := make([]float32, 0, len(batch)*conf.ActionSpace)
	vs := make([]float32, 0, len(batch))
	for i, ex := range batch {
		if len(ex.Board) != inputSize || len(ex.Policy) != conf.ActionSpace {
			return errors.Errorf("Example %d has a board of %d and a policy of %d. Expected %d and %d", i, len(ex.Board), len(ex.Policy), inputSize, conf.ActionSpace)
		}
		xs = append(xs, ex.Board...)
		pis = append(pis, ex.Policy...)
		vs = append(vs, ex.Value)
	}
	Xs := tensor.New(tensor.WithBacking(xs), tensor.WithShape(conf.BatchSize, conf.Features, conf.Height, conf.Width))
	Policies := tensor.New(tensor.WithBacking(pis), tensor.WithShape(conf.BatchSize, conf.ActionSpace))
	Values := tensor.New(tensor.WithBacking(vs), tensor.WithShape(conf.BatchSize))

	if o.cost, err = o.trainer.Step(Xs, Policies, Values); err != nil {
		return err
	}
	o.stale = true
	return nil
}

// Clone copies the neural network. The copy has its own inference VMs.
func (o *DualOracle) Clone() (Oracle, error) {
	o.RLock()
	defer o.RUnlock()
	nn, err := o.nn.Clone()
	if err != nil {
		return nil, err
	}
	return &DualOracle{nn: nn, stale: true}, nil
}

// Save writes the neural network with encoding/gob.
func (o *DualOracle) Save(w io.Writer) error {
	o.RLock()
	defer o.RUnlock()
	return errors.WithStack(gob.NewEncoder(w).Encode(o.nn))
}

// Load replaces the neural network with one written by Save.
func (o *DualOracle) Load(r io.Reader) error {
	nn := new(dual.Dual)
	if err := gob.NewDecoder(r).Decode(nn); err != nil {
		return errors.WithStack(err)
	}
	o.Lock()
	defer o.Unlock()
	if o.trainer != nil {
		if err := o.trainer.Close(); err != nil {
			return err
		}
		o.trainer = nil
	}
	o.nn = nn
	o.stale = true
	return nil
}

// Close releases the VMs.
func (o *DualOracle) Close() error {
	o.Lock()
	defer o.Unlock()
	var allErrs manyErr
	if err := o.closeInferers(); err != nil {
		allErrs = append(allErrs, err)
	}
	if o.trainer != nil {
		if err := o.trainer.Close(); err != nil {
			allErrs = append(allErrs, err)
		}
		o.trainer = nil
	}
	o.stale = true
	if len(allErrs) > 0 {
		return allErrs
	}
	return nil
}

func (o *DualOracle) closeInferers() error {
	var allErrs manyErr
	for _, inf := range o.inferers {
		if err := inf.Close(); err != nil {
			allErrs = append(allErrs, err)
		}
	}
	o.inferers = o.inferers[:0]
	o.inferer = nil
	if len(allErrs) > 0 {
		return allErrs
	}
	return nil
}
