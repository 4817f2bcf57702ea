package dual

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func smallConf() Config {
	conf := DefaultConf(3, 3, 9)
	conf.BatchSize = 8
	conf.SharedLayers = 1
	return conf
}

func TestSanity(t *testing.T) {
	conf := smallConf()
	d := New(conf)
	if err := d.Init(); err != nil {
		t.Fatalf("%+v", err)
	}
	t.Logf("Number of nodes: %d", len(d.g.AllNodes()))
	prog, _, err := G.Compile(d.g)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("Requires %d bytes", prog.CPUMemReq())

	trainer, err := NewTrainer(d)
	require.NoError(t, err)
	defer trainer.Close()

	f := tensor.New(tensor.WithShape(d.planes.Shape()...), tensor.WithBacking(tensor.Random(Float, d.planes.Shape().TotalSize())))
	π := tensor.New(tensor.WithShape(d.Π.Shape()...), tensor.WithBacking(tensor.Random(Float, d.Π.Shape().TotalSize())))
	v := tensor.New(tensor.WithShape(d.V.Shape()...), tensor.WithBacking(tensor.Random(Float, d.V.Shape().TotalSize())))

	r := rand.New(rand.NewSource(1337))
	for i := 0; i < 20; i++ {
		cost, err := trainer.Step(f, π, v)
		if err != nil {
			t.Fatalf("iteration %d: %+v", i, err)
		}
		assert.False(t, math32.IsNaN(cost), "iteration %d", i)
		require.NoError(t, shuffleBatch(f, π, v, r))
	}
}

func TestForwardOnlyCannotTrain(t *testing.T) {
	conf := smallConf()
	conf.FwdOnly = true
	d := New(conf)
	require.NoError(t, d.Init())
	_, err := NewTrainer(d)
	assert.Error(t, err)

	_, err = NewTrainer(New(smallConf()))
	assert.Error(t, err, "uninitialized networks cannot be trained")
}

func TestInferenceSanity(t *testing.T) {
	d := New(smallConf())
	if err := d.Init(); err != nil {
		t.Fatalf("%+v", err)
	}
	inferer, err := Infer(d, false)
	if err != nil {
		t.Fatal(err)
	}
	defer inferer.Close()

	board := []float32{
		// opponent
		1, 0, 0,
		0, 1, 0,
		0, 0, 0,
		// empty
		0, 1, 1,
		1, 0, 1,
		1, 1, 1,
		// mover
		0, 0, 0,
		0, 0, 0,
		0, 0, 0,
	}
	policy, value, err := inferer.Infer(board)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, policy, 9)
	var sum float32
	for _, p := range policy {
		assert.True(t, p >= 0)
		sum += p
	}
	assert.InDelta(t, 1, sum, 1e-4)
	assert.True(t, value >= -1 && value <= 1, "value %v is squashed by tanh", value)

	again, value2, err := inferer.Infer(board)
	require.NoError(t, err)
	assert.Equal(t, policy, again, "inference is deterministic")
	assert.Equal(t, value, value2)

	_, _, err = inferer.Infer(board[:9])
	assert.Error(t, err)
}

func TestWeightsIndependentOfBatchSize(t *testing.T) {
	conf := smallConf()
	d := New(conf)
	require.NoError(t, d.Init())

	conf.BatchSize = 1
	conf.FwdOnly = true
	single := New(conf)
	require.NoError(t, single.Init())

	weights, singleWeights := d.Model(), single.Model()
	require.Len(t, singleWeights, len(weights))
	for i, w := range weights {
		assert.Equal(t, w.Shape(), singleWeights[i].Shape(), "%v", w.Name())
	}
}

func TestInferenceDefaultBatchSize(t *testing.T) {
	d := New(DefaultConf(3, 3, 9))
	require.NoError(t, d.Init())
	require.Equal(t, 64, d.BatchSize)

	inferer, err := Infer(d, false)
	require.NoError(t, err)
	defer inferer.Close()

	policy, value, err := inferer.Infer(make([]float32, d.InputSize()))
	require.NoError(t, err)
	assert.Len(t, policy, 9)
	assert.True(t, value >= -1 && value <= 1)
}

func TestDual_GobEncode(t *testing.T) {
	conf := smallConf()
	d := New(conf)
	if err := d.Init(); err != nil {
		t.Fatalf("%+v", err)
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(d); err != nil {
		t.Fatalf("Encoding Failure %v", err)
	}

	dec := gob.NewDecoder(&buf)
	d2 := &Dual{}
	if err := dec.Decode(d2); err != nil {
		t.Fatalf("Decoding Failure %v", err)
	}
	assert.Equal(t, conf, d2.Config)

	dmodel := d.Model()
	d2model := d2.Model()
	require.Equal(t, len(dmodel), len(d2model))
	for i, n := range dmodel {
		fstVal := n.Value()
		sndVal := d2model[i].Value()
		assert.Equal(t, fstVal.Data(), sndVal.Data(), "%d - %v vs %v should have the same data", i, dmodel[i], d2model[i])
	}
}

func TestClone(t *testing.T) {
	d := New(smallConf())
	require.NoError(t, d.Init())
	d2, err := d.Clone()
	require.NoError(t, err)

	model, model2 := d.Model(), d2.Model()
	require.Equal(t, len(model), len(model2))
	for i := range model {
		assert.Equal(t, model[i].Value().Data(), model2[i].Value().Data())
	}

	// the clone does not share its weights
	w := model2[0].Value().Data().([]float32)
	w[0] += 1
	assert.NotEqual(t, model[0].Value().Data(), model2[0].Value().Data())
}

func TestInferencer_ExecLog(t *testing.T) {
	d := New(smallConf())
	if err := d.Init(); err != nil {
		t.Fatalf("%+v", err)
	}

	inferer, err := Infer(d, false)
	if err != nil {
		t.Fatal(err)
	}
	defer inferer.Close()

	if inferer.ExecLog() != "" {
		t.Error("Should not have any logs")
	}
}

func TestShuffleBatch(t *testing.T) {
	Xs := tensor.New(tensor.WithShape(5, 1, 3, 2), tensor.WithBacking(G.Uniform(150, 152)(tensor.Float32, 5, 1, 3, 2)))
	pis := tensor.New(tensor.WithShape(5, 6), tensor.WithBacking(G.Uniform(0, 1)(tensor.Float32, 5, 6)))
	vs := tensor.New(tensor.WithShape(5), tensor.WithBacking(G.Uniform(0, 1)(tensor.Float32, 5)))

	originalXs := Xs.Clone().(*tensor.Dense)
	originalPis := pis.Clone().(*tensor.Dense)
	originalVs := vs.Clone().(*tensor.Dense)

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		if err := shuffleBatch(Xs, pis, vs, r); err != nil {
			t.Fatalf("%+v", err)
		}
		if !assert.ObjectsAreEqual(originalVs.Data(), vs.Data()) {
			break
		}
	}
	assert := assert.New(t)
	assert.NotEqual(originalXs.Data(), Xs.Data(), "Xs should not be equal")
	assert.NotEqual(originalPis.Data(), pis.Data(), "Pis should not be equal")
	assert.NotEqual(originalVs.Data(), vs.Data(), "Vs should not be equal")
	assert.Equal(tensor.Shape{5, 1, 3, 2}, Xs.Shape())
	assert.Equal(tensor.Shape{5, 6}, pis.Shape())

	// rows move together
	xs := Xs.Data().([]float32)
	oxs := originalXs.Data().([]float32)
	ovs := originalVs.Data().([]float32)
	for i, v := range vs.Data().([]float32) {
		for j, ov := range ovs {
			if ov == v {
				assert.Equal(oxs[j*6:j*6+6], xs[i*6:i*6+6])
			}
		}
	}

	if t.Failed() {
		t.Logf("Xs:\n%v\nPis:\n%v\nVs:\n%v", originalXs, originalPis, originalVs)
		t.Logf("Xs:\n%v\nPis:\n%v\nVs:\n%v", Xs, pis, vs)
	}
}
