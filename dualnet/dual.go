package dual

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var Float = G.Float32

// Dual is the whole neural network architecture of the dual network.
//
// The policy and value outputs are shared
type Dual struct {
	Config
	ops []batchNormOp

	g    *G.ExprGraph
	Π, V *G.Node // pi and value labels. Pi is a matrix of move probabilities

	planes       *G.Node
	policyOutput *G.Node
	valueOutput  *G.Node

	policyValue G.Value // policy predicted
	value       G.Value // the actual value predicted
	cost        G.Value // cost, for training recoring
}

// New returns a new, uninitialized *Dual.
func New(conf Config) *Dual {
	retVal := &Dual{
		Config: conf,
	}

	return retVal
}

func (d *Dual) Init() error {
	d.reset()
	d.g = G.NewGraph()
	actionSpace := d.ActionSpace
	if err := d.fwd(actionSpace); err != nil {
		return err
	}
	return d.bwd(actionSpace)
}

func (d *Dual) fwd(actionSpace int) error {
	boardSize := d.Width * d.Height

	// note, the data should be arranged like so:
	//	BatchSize, Features, Height, Width
	// because Gorgonia only supports doing convolutions on BCHW format
	d.planes = G.NewTensor(d.g, Float, 4, G.WithShape(d.BatchSize, d.Features, d.Height, d.Width), G.WithName("Planes"))

	var m maebe
	sharedOut, initialOp := m.block(d.planes, d.K, 3, "init")
	d.ops = append(d.ops, initialOp)

	// shared stack
	for i := 0; i < d.SharedLayers; i++ {
		var ops []batchNormOp
		sharedOut, ops = m.residual(sharedOut, d.K, i)
		d.ops = append(d.ops, ops...)
	}

	// policy head
	policy, pop := m.block(sharedOut, 2, 1, "policy_head")
	policy = m.reshape(policy, tensor.Shape{d.BatchSize, boardSize * 2})
	logits := m.linear(policy, actionSpace, "Policy")

	// Read to output which can be used for deciding the policy
	d.policyOutput = m.do(func() (*G.Node, error) { return G.SoftMax(logits) })

	// value head
	value, vop := m.block(sharedOut, 1, 1, "value_head")
	value = m.reshape(value, tensor.Shape{d.BatchSize, boardSize})
	value = m.linear(value, d.FC, "Value") // value hidden
	value = m.rectify(value)

	valueOutput := m.linear(value, 1, "ValueOutput")
	valueOutput = m.reshape(valueOutput, tensor.Shape{d.BatchSize})
	d.valueOutput = m.do(func() (*G.Node, error) { return G.Tanh(valueOutput) })
	if m.err != nil {
		return m.err
	}
	G.Read(d.policyOutput, &d.policyValue)
	G.Read(d.valueOutput, &d.value)

	// add ops
	d.ops = append(d.ops, pop, vop)
	return nil
}

func (d *Dual) bwd(actionSpace int) error {
	if d.FwdOnly {
		return nil
	}
	d.Π = G.NewMatrix(d.g, Float, G.WithShape(d.BatchSize, actionSpace), G.WithName("Pi"))
	d.V = G.NewVector(d.g, Float, G.WithShape(d.BatchSize), G.WithName("V"))

	var m maebe
	// policy, value and combined costs
	var pcost, vcost, ccost *G.Node
	pcost = m.xent(d.policyOutput, d.Π)
	vcost = m.do(func() (*G.Node, error) { return G.Sub(d.valueOutput, d.V) })
	vcost = m.do(func() (*G.Node, error) { return G.Square(vcost) })
	vcost = m.do(func() (*G.Node, error) { return G.Mean(vcost) })

	// combined costs
	ccost = m.do(func() (*G.Node, error) { return G.Add(pcost, vcost) })
	if m.err != nil {
		return m.err
	}
	G.Read(ccost, &d.cost)

	if _, err := G.Grad(ccost, d.Model()...); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (d *Dual) Model() G.Nodes {
	retVal := make(G.Nodes, 0, d.g.Nodes().Len())
	for _, n := range d.g.AllNodes() {
		if n.IsVar() && n != d.planes && n != d.Π && n != d.V {
			retVal = append(retVal, n)
		}
	}
	return retVal
}

func (d *Dual) SetTesting() {
	for _, op := range d.ops {
		op.SetTesting()
	}
}

// Clone creates a new *Dual with the same configuration and a copy of the weights.
func (d *Dual) Clone() (*Dual, error) {
	d2 := New(d.Config)
	if err := d2.Init(); err != nil {
		return nil, err
	}
	if err := copyWeights(d2, d); err != nil {
		return nil, err
	}
	return d2, nil
}

// Dual implemented Dualer
func (d *Dual) Dual() *Dual { return d }

// Cost is the combined policy and value cost of the last training step.
func (d *Dual) Cost() float32 {
	if d.cost == nil {
		return 0
	}
	c, _ := d.cost.Data().(float32)
	return c
}

func (d *Dual) reset() {
	d.ops = nil
	d.g = nil
	d.Π = nil
	d.V = nil

	d.planes = nil
	d.policyOutput = nil
	d.valueOutput = nil
}

// copyWeights copies the learnt weights of src into dst. Both networks must share everything but the batch size.
func copyWeights(dst, src *Dual) error {
	to := dst.Model()
	from := src.Model()
	if len(to) != len(from) {
		return errors.Errorf("cannot copy %d weights into a network with %d weights", len(from), len(to))
	}
	for i, n := range from {
		original, ok := n.Value().Data().([]float32)
		if !ok {
			return errors.Errorf("weight %v is not a []float32", n.Name())
		}
		cloned := to[i].Value().Data().([]float32)
		if len(cloned) != len(original) {
			return errors.Errorf("weight %v has %d elements. Expected %d", n.Name(), len(original), len(cloned))
		}
		copy(cloned, original)
	}
	return nil
}

func (d *Dual) GobEncode() (retVal []byte, err error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err = enc.Encode(d.Config); err != nil {
		return nil, err
	}
	for _, n := range d.Model() {
		v := n.Value()
		if err = enc.Encode(&v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (d *Dual) GobDecode(p []byte) error {
	buf := bytes.NewBuffer(p)
	dec := gob.NewDecoder(buf)
	if err := dec.Decode(&d.Config); err != nil {
		return err
	}
	if err := d.Init(); err != nil {
		return err
	}
	for _, n := range d.Model() {
		var v G.Value
		if err := dec.Decode(&v); err != nil {
			return err
		}
		if err := G.Let(n, v); err != nil {
			return err
		}
	}
	return nil
}
