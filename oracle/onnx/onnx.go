// Package onnx provides an inference only oracle backed by ONNX Runtime.
//
// The model takes one encoded board of shape (1, Features, Rows, Cols) and returns a policy of shape
// (1, ActionSpace) and a value of shape (1, 1).
package onnx

import (
	"os"
	"sync"

	"github.com/azplay/azplay"
	"github.com/azplay/azplay/game"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Config describes the model.
type Config struct {
	ModelPath   string `json:"model_path"`
	LibraryPath string `json:"library_path,omitempty"` // path of the onnxruntime shared library

	InputName  string `json:"input_name"`
	PolicyName string `json:"policy_name"`
	ValueName  string `json:"value_name"`

	Features, Rows, Cols int
	ActionSpace          int  `json:"action_space"`
	Logits               bool `json:"logits"` // the policy output is not normalized
}

// DefaultConfig is the configuration of a model exported with the input "state" and the outputs "policy" and "value".
func DefaultConfig(g game.Game, modelPath string) Config {
	rows, cols := g.BoardSize()
	return Config{
		ModelPath:   modelPath,
		InputName:   "state",
		PolicyName:  "policy",
		ValueName:   "value",
		Features:    3,
		Rows:        rows,
		Cols:        cols,
		ActionSpace: g.ActionSpace(),
	}
}

func (c Config) Validate() error {
	switch {
	case c.ModelPath == "":
		return errors.WithStack(&game.ConfigurationError{Field: "ModelPath", Value: c.ModelPath})
	case c.InputName == "" || c.PolicyName == "" || c.ValueName == "":
		return errors.WithStack(&game.ConfigurationError{Field: "names", Value: []string{c.InputName, c.PolicyName, c.ValueName}})
	case c.Features <= 0 || c.Rows <= 0 || c.Cols <= 0:
		return errors.WithStack(&game.ConfigurationError{Field: "shape", Value: []int{c.Features, c.Rows, c.Cols}})
	case c.ActionSpace <= 0:
		return errors.WithStack(&game.ConfigurationError{Field: "ActionSpace", Value: c.ActionSpace})
	}
	return nil
}

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// Oracle runs a model with ONNX Runtime. Sessions are bound to their tensors, so runs are serialized.
type Oracle struct {
	Config

	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	policy  *ort.Tensor[float32]
	value   *ort.Tensor[float32]
}

// New loads the model. The onnxruntime environment is initialized on first use.
func New(conf Config) (*Oracle, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(conf.ModelPath); err != nil {
		return nil, errors.WithStack(err)
	}

	ortInitOnce.Do(func() {
		if conf.LibraryPath != "" {
			ort.SetSharedLibraryPath(conf.LibraryPath)
		} else if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, errors.Wrap(ortInitErr, "failed to init ort")
	}

	retVal := &Oracle{Config: conf}
	var err error
	if retVal.input, err = ort.NewTensor(ort.NewShape(1, int64(conf.Features), int64(conf.Rows), int64(conf.Cols)), make([]float32, conf.Features*conf.Rows*conf.Cols)); err != nil {
		return nil, errors.Wrap(err, "input tensor")
	}
	if retVal.policy, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(conf.ActionSpace))); err != nil {
		retVal.Close()
		return nil, errors.Wrap(err, "policy tensor")
	}
	if retVal.value, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1)); err != nil {
		retVal.Close()
		return nil, errors.Wrap(err, "value tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		retVal.Close()
		return nil, errors.WithStack(err)
	}
	defer options.Destroy()
	if err = options.SetIntraOpNumThreads(1); err != nil {
		retVal.Close()
		return nil, errors.WithStack(err)
	}

	if retVal.session, err = ort.NewAdvancedSession(conf.ModelPath,
		[]string{conf.InputName},
		[]string{conf.PolicyName, conf.ValueName},
		[]ort.Value{retVal.input},
		[]ort.Value{retVal.policy, retVal.value},
		options,
	); err != nil {
		retVal.Close()
		return nil, errors.Wrap(err, "failed to create session")
	}
	return retVal, nil
}

// Infer runs the model on an encoded board. It is safe for concurrent use.
func (o *Oracle) Infer(board []float32) (policy []float32, value float32, err error) {
	if len(board) != o.Features*o.Rows*o.Cols {
		return nil, 0, errors.Errorf("Expected a board of %d values. Got %d", o.Features*o.Rows*o.Cols, len(board))
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil, 0, errors.New("Oracle is closed")
	}

	copy(o.input.GetData(), board)
	if err = o.session.Run(); err != nil {
		return nil, 0, errors.Wrap(err, "onnx run")
	}
	policy = make([]float32, o.ActionSpace)
	copy(policy, o.policy.GetData())
	if o.Logits {
		softmax(policy)
	}
	return policy, o.value.GetData()[0], nil
}

// Train always fails: ONNX models are trained elsewhere.
func (o *Oracle) Train(batch []azplay.Example) error {
	return errors.New("ONNX oracles are inference only")
}

// Close releases the session and its tensors.
func (o *Oracle) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var err error
	if o.session != nil {
		err = o.session.Destroy()
		o.session = nil
	}
	for _, t := range []*ort.Tensor[float32]{o.input, o.policy, o.value} {
		if t != nil {
			if e := t.Destroy(); e != nil && err == nil {
				err = e
			}
		}
	}
	o.input, o.policy, o.value = nil, nil, nil
	return errors.WithStack(err)
}

func softmax(a []float32) {
	max := math32.Inf(-1)
	for _, v := range a {
		if v > max {
			max = v
		}
	}
	var sum float32
	for i, v := range a {
		a[i] = math32.Exp(v - max)
		sum += a[i]
	}
	for i := range a {
		a[i] /= sum
	}
}
