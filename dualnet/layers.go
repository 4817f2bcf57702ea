package dual

import (
	"fmt"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	nnops "gorgonia.org/gorgonia/ops/nn"
	"gorgonia.org/tensor"
)

// channelwise broadcasts a (1, C, 1, 1) tensor over the batch and the board.
var channelwise = []byte{0, 2, 3}

// maebe builds layers until the first error, which sticks.
type maebe struct {
	err error
}

type batchNormOp interface {
	SetTraining()
	SetTesting()
	Reset() error
}

func (m *maebe) do(f func() (*G.Node, error)) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// conv is a stride 1 convolution that keeps the board size.
func (m *maebe) conv(input *G.Node, filterCount, size int, name string) *G.Node {
	if m.err != nil {
		return nil
	}
	shp := input.Shape()
	filter := G.NewTensor(input.Graph(), Float, 4,
		G.WithShape(filterCount, shp[1], size, size),
		G.WithName(name+"_filter"),
		G.WithInit(G.GlorotU(1.0)))
	pad := (size - 1) / 2
	return m.do(func() (*G.Node, error) {
		return nnops.Conv2d(input, filter, []int{size, size}, []int{pad, pad}, []int{1, 1}, []int{1, 1})
	})
}

// batchnorm normalizes every channel over the batch, then scales and shifts it with a learnt γ and β per channel.
// γ and β do not depend on the batch size, so a network built for inference can take the weights of one built for training.
func (m *maebe) batchnorm(input *G.Node, name string) (*G.Node, batchNormOp) {
	if m.err != nil {
		return nil, nil
	}
	g := input.Graph()
	shp := input.Shape()

	// the normalization op wants an elementwise scale and bias of the input's shape. They stay the identity.
	ones := tensor.New(tensor.Of(Float), tensor.WithShape(shp.Clone()...))
	if m.err = ones.Memset(float32(1)); m.err != nil {
		m.err = errors.WithStack(m.err)
		return nil, nil
	}
	zeros := tensor.New(tensor.Of(Float), tensor.WithShape(shp.Clone()...))

	var normalized *G.Node
	var op batchNormOp
	if normalized, _, _, op, m.err = nnops.BatchNorm(input, g.Constant(ones), g.Constant(zeros), 0.997, 1e-5); m.err != nil {
		m.err = errors.WithStack(m.err)
		return nil, nil
	}

	γ := G.NewTensor(g, Float, 4, G.WithShape(1, shp[1], 1, 1), G.WithName(name+"_γ"), G.WithInit(G.Ones()))
	β := G.NewTensor(g, Float, 4, G.WithShape(1, shp[1], 1, 1), G.WithName(name+"_β"), G.WithInit(G.Zeroes()))
	scaled := m.do(func() (*G.Node, error) { return G.BroadcastHadamardProd(normalized, γ, nil, channelwise) })
	return m.do(func() (*G.Node, error) { return G.BroadcastAdd(scaled, β, nil, channelwise) }), op
}

// block is convolution, batch normalization and ReLU.
func (m *maebe) block(input *G.Node, filterCount, size int, name string) (*G.Node, batchNormOp) {
	normalized, op := m.batchnorm(m.conv(input, filterCount, size, name), name)
	return m.rectify(normalized), op
}

// residual adds two 3×3 blocks of the same input.
func (m *maebe) residual(input *G.Node, filterCount, layer int) (*G.Node, []batchNormOp) {
	left, lop := m.block(input, filterCount, 3, fmt.Sprintf("shared%d_a", layer))
	right, rop := m.block(input, filterCount, 3, fmt.Sprintf("shared%d_b", layer))
	sum := m.do(func() (*G.Node, error) { return G.Add(left, right) })
	return m.rectify(sum), []batchNormOp{lop, rop}
}

// linear is xW+b with b broadcast over the batch.
func (m *maebe) linear(input *G.Node, units int, name string) *G.Node {
	if m.err != nil {
		return nil
	}
	g := input.Graph()
	w := G.NewTensor(g, Float, 2, G.WithShape(input.Shape()[1], units), G.WithInit(G.GlorotN(1.0)), G.WithName(name+"_w"))
	b := G.NewTensor(g, Float, 2, G.WithShape(1, units), G.WithName(name+"_b"), G.WithInit(G.Zeroes()))
	xw := m.do(func() (*G.Node, error) { return G.Mul(input, w) })
	return m.do(func() (*G.Node, error) { return G.BroadcastAdd(xw, b, nil, []byte{0}) })
}

func (m *maebe) rectify(input *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return nnops.Rectify(input) })
}

func (m *maebe) reshape(input *G.Node, to tensor.Shape) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Reshape(input, to) })
}

// xent is the cross entropy between the predicted distribution and the target distribution, averaged.
func (m *maebe) xent(predicted, target *G.Node) *G.Node {
	logged := m.do(func() (*G.Node, error) { return G.Log(predicted) })
	prod := m.do(func() (*G.Node, error) { return G.HadamardProd(target, logged) })
	mean := m.do(func() (*G.Node, error) { return G.Mean(prod) })
	return m.do(func() (*G.Node, error) { return G.Neg(mean) })
}
