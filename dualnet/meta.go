package dual

import (
	"bytes"
	"log"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

// Trainer holds the VM and the solver used to train a *Dual, so that they need not be recreated for every batch.
type Trainer struct {
	d      *Dual
	m      G.VM
	model  []G.ValueGrad
	solver G.Solver
}

// NewTrainer creates a *Trainer for an initialized *Dual.
func NewTrainer(d *Dual) (*Trainer, error) {
	if d.g == nil {
		return nil, errors.New("Dual has not been initialized")
	}
	if d.FwdOnly {
		return nil, errors.New("Cannot train a forward only Dual")
	}
	opts := []G.SolverOpt{G.WithLearnRate(d.LearnRate), G.WithBatchSize(float64(d.BatchSize))}
	if d.L2 > 0 {
		opts = append(opts, G.WithL2Reg(d.L2))
	}
	return &Trainer{
		d:      d,
		m:      G.NewTapeMachine(d.g, G.BindDualValues(d.Model()...)),
		model:  G.NodesToValueGrads(d.Model()),
		solver: G.NewVanillaSolver(opts...),
	}, nil
}

// Step runs one gradient descent step on a full batch. It returns the cost before the step.
//
// Xs has to have the shape (BatchSize, Features, Height, Width), pis (BatchSize, ActionSpace) and vs (BatchSize).
func (t *Trainer) Step(Xs, pis, vs *tensor.Dense) (cost float32, err error) {
	defer t.m.Reset()
	if err = G.Let(t.d.planes, Xs); err != nil {
		return 0, errors.Wrap(err, "Cannot set planes")
	}
	if err = G.Let(t.d.Π, pis); err != nil {
		return 0, errors.Wrap(err, "Cannot set policies")
	}
	if err = G.Let(t.d.V, vs); err != nil {
		return 0, errors.Wrap(err, "Cannot set values")
	}
	if err = t.m.RunAll(); err != nil {
		return 0, errors.WithStack(err)
	}
	cost = t.d.Cost()
	if math32.IsNaN(cost) || math32.IsInf(cost, 0) {
		return cost, errors.Errorf("Training diverged. Cost is %v", cost)
	}
	if err = t.solver.Step(t.model); err != nil {
		return cost, errors.WithStack(err)
	}
	return cost, nil
}

// Close implements a closer.
func (t *Trainer) Close() error { return t.m.Close() }

// Train is a basic trainer. Xs, policies and values hold batches*BatchSize examples,
// which are reshuffled after every iteration. It returns the mean cost of the last iteration.
func Train(d *Dual, Xs, policies, values *tensor.Dense, batches, iterations int, r *rand.Rand) (cost float32, err error) {
	var t *Trainer
	if t, err = NewTrainer(d); err != nil {
		return 0, err
	}
	defer t.Close()

	b := batcher{size: d.Config.BatchSize}
	for i := 0; i < iterations; i++ {
		cost = 0
		for bat := 0; bat < batches; bat++ {
			views := b.batch(bat, Xs, policies, values)
			if b.err != nil {
				return 0, b.err
			}

			var c float32
			if c, err = t.Step(views[0], views[1], views[2]); err != nil {
				return 0, errors.Wrapf(err, "iteration %d, batch %d", i, bat)
			}
			cost += c
		}
		if err = shuffleBatch(Xs, policies, values, r); err != nil {
			return 0, err
		}
	}
	if batches > 0 {
		cost /= float32(batches)
	}
	return cost, nil
}

// shuffleBatch shuffles the batches.
func shuffleBatch(Xs, π, v *tensor.Dense, r *rand.Rand) (err error) {
	oriXs := Xs.Shape().Clone()
	oriPis := π.Shape().Clone()
	defer func() {
		Xs.Reshape(oriXs...)
		π.Reshape(oriPis...)
	}()

	if err = Xs.Reshape(as2D(Xs.Shape())...); err != nil {
		return errors.Wrapf(err, "shuffle batch failed - reshape %v", oriXs)
	}
	if err = π.Reshape(as2D(π.Shape())...); err != nil {
		return errors.Wrapf(err, "shuffle batch failed - reshape %v", oriPis)
	}

	var matXs, matPis [][]float32
	if matXs, err = native.MatrixF32(Xs); err != nil {
		return errors.Wrapf(err, "shuffle batch failed - matX")
	}
	if matPis, err = native.MatrixF32(π); err != nil {
		return errors.Wrapf(err, "shuffle batch failed - pi")
	}
	vs := v.Data().([]float32)

	tmpX := make([]float32, Xs.Shape()[1])
	tmpPi := make([]float32, π.Shape()[1])
	for i := range matXs {
		j := r.Intn(i + 1)

		rowI := matXs[i]
		rowJ := matXs[j]
		copy(tmpX, rowI)
		copy(rowI, rowJ)
		copy(rowJ, tmpX)

		piI := matPis[i]
		piJ := matPis[j]
		copy(tmpPi, piI)
		copy(piI, piJ)
		copy(piJ, tmpPi)

		vs[i], vs[j] = vs[j], vs[i]
	}
	return nil
}

func as2D(s tensor.Shape) tensor.Shape {
	retVal := make(tensor.Shape, 2)
	retVal[0] = s[0]
	retVal[1] = 1
	for i := 1; i < len(s); i++ {
		retVal[1] *= s[i]
	}
	return retVal
}

// Inferencer is a struct that holds the state for a *Dual and a VM. By using an Inferece struct,
// there is no longer a need to create a VM every time an inference needs to be done.
type Inferencer struct {
	d *Dual
	m G.VM

	input *tensor.Dense
	buf   *bytes.Buffer
}

// Infer takes a trained *Dual, and creates a interence data structure such that it'd be easy to infer.
// The inference network evaluates one board at a time.
func Infer(d *Dual, toLog bool) (*Inferencer, error) {
	conf := d.Config
	conf.FwdOnly = true
	conf.BatchSize = 1
	retVal := &Inferencer{
		d:     New(conf),
		input: tensor.New(tensor.WithShape(1, conf.Features, conf.Height, conf.Width), tensor.Of(Float)),
	}
	if err := retVal.d.Init(); err != nil {
		return nil, err
	}
	retVal.d.SetTesting()
	if err := copyWeights(retVal.d, d); err != nil {
		return nil, err
	}

	retVal.buf = new(bytes.Buffer)
	if toLog {
		logger := log.New(retVal.buf, "", 0)
		retVal.m = G.NewTapeMachine(retVal.d.g,
			G.WithLogger(logger),
			G.WithWatchlist(),
			G.TraceExec(),
			G.WithValueFmt("%+1.1v"),
			G.WithNaNWatch(),
		)
	} else {
		retVal.m = G.NewTapeMachine(retVal.d.g)
	}
	return retVal, nil
}

// Dual implements Dualer
func (m *Inferencer) Dual() *Dual { return m.d }

// Infer takes the board, in form of a []float32, and runs inference, and returns the value.
// The returned policy is a fresh slice.
func (m *Inferencer) Infer(board []float32) (policy []float32, value float32, err error) {
	if len(board) != m.d.InputSize() {
		return nil, 0, errors.Errorf("Expected a board of %d values. Got %d", m.d.InputSize(), len(board))
	}
	m.buf.Reset()
	for _, op := range m.d.ops {
		if err = op.Reset(); err != nil {
			return nil, 0, err
		}
	}

	// copy board to the provided preallocated input tensor
	data := m.input.Data().([]float32)
	copy(data, board)

	m.m.Reset()
	if err = G.Let(m.d.planes, m.input); err != nil {
		return nil, 0, err
	}
	if err = m.m.RunAll(); err != nil {
		return nil, 0, err
	}
	policy = make([]float32, m.d.ActionSpace)
	copy(policy, m.d.policyValue.Data().([]float32))
	value = m.d.value.Data().([]float32)[0]
	return policy, value, nil
}

// ExecLog returns the execution log. If Infer was called with toLog = false, then it will return an empty string
func (m *Inferencer) ExecLog() string { return m.buf.String() }

// Close implements a closer, because well, a gorgonia VM is a resource.
func (m *Inferencer) Close() error { return m.m.Close() }
