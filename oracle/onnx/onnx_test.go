package onnx

import (
	"path/filepath"
	"testing"

	"github.com/azplay/azplay/game"
	"github.com/azplay/azplay/game/mnk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	conf := DefaultConfig(mnk.TicTacToe(), "model.onnx")
	require.NoError(t, conf.Validate())
	assert.Equal(t, 9, conf.ActionSpace)

	cases := []struct {
		field  string
		modify func(c *Config)
	}{
		{"ModelPath", func(c *Config) { c.ModelPath = "" }},
		{"names", func(c *Config) { c.PolicyName = "" }},
		{"shape", func(c *Config) { c.Rows = 0 }},
		{"ActionSpace", func(c *Config) { c.ActionSpace = -1 }},
	}
	for _, c := range cases {
		conf := DefaultConfig(mnk.TicTacToe(), "model.onnx")
		c.modify(&conf)
		var ce *game.ConfigurationError
		require.ErrorAs(t, conf.Validate(), &ce, c.field)
		assert.Equal(t, c.field, ce.Field)
	}
}

func TestNewMissingModel(t *testing.T) {
	_, err := New(DefaultConfig(mnk.TicTacToe(), filepath.Join(t.TempDir(), "missing.onnx")))
	assert.Error(t, err)
}

func TestSoftmax(t *testing.T) {
	a := []float32{1, 1, 1, 1}
	softmax(a)
	assert.Equal(t, []float32{0.25, 0.25, 0.25, 0.25}, a)

	a = []float32{0, 1000}
	softmax(a)
	assert.InDelta(t, 1, a[1], 1e-6)
	assert.InDelta(t, 0, a[0], 1e-6)
}
