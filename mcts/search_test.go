package mcts

import (
	"context"
	"testing"

	"github.com/azplay/azplay/game"
	"github.com/azplay/azplay/game/mnk"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/vecf32"
)

// dummyNN is essentially a uniform prior with an undecided value.
type dummyNN struct {
	calls int
}

func (nn *dummyNN) Infer(state *game.State) ([]float32, float32, error) {
	nn.calls++
	return uniform(state.ActionSpace()), 0, nil
}

type brokenNN struct {
	policy []float32
	value  float32
	err    error
}

func (nn brokenNN) Infer(state *game.State) ([]float32, float32, error) {
	return nn.policy, nn.value, nn.err
}

func play(t *testing.T, actions ...game.Action) *game.State {
	t.Helper()
	s := mnk.TicTacToe().InitialState()
	for _, a := range actions {
		var err error
		s, err = s.Play(a)
		require.NoError(t, err)
	}
	return s
}

func TestRunZeroSimulations(t *testing.T) {
	nn := &dummyNN{}
	tree := New(DefaultConfig(), nn)
	res, err := tree.Run(context.Background(), play(t), 0, 1)
	require.NoError(t, err)

	assert.Equal(t, make([]float32, 9), res.Policy)
	assert.False(t, res.Available())
	_, ok := res.Best()
	assert.False(t, ok)
	_, ok = tree.Choose(res, 0)
	assert.False(t, ok)
	assert.Zero(t, nn.calls)
}

func TestRunTerminalRoot(t *testing.T) {
	tree := New(DefaultConfig(), &dummyNN{})
	res, err := tree.Run(context.Background(), play(t, 0, 4, 1, 5, 2), 50, 1)
	require.NoError(t, err)
	assert.False(t, res.Available())
	assert.Zero(t, res.Simulations)
}

func TestRunInvalidParameters(t *testing.T) {
	tree := New(DefaultConfig(), &dummyNN{})
	var ce *game.ConfigurationError

	_, err := tree.Run(context.Background(), play(t), -1, 1)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "simulations", ce.Field)

	_, err = tree.Run(context.Background(), play(t), 10, -0.5)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "exploration", ce.Field)
}

func TestRunDistribution(t *testing.T) {
	nn := &dummyNN{}
	tree := New(DefaultConfig(), nn)
	s := play(t, 4)
	res, err := tree.Run(context.Background(), s, 100, 2)
	require.NoError(t, err)

	assert.Equal(t, 100, res.Simulations)
	assert.InDelta(t, 1, vecf32.Sum(res.Policy), 1e-5)
	assert.Zero(t, res.Policy[4], "occupied positions are never visited")
	assert.Equal(t, game.O, res.Player)

	var visits uint32
	for _, v := range res.Visits {
		visits += v
	}
	assert.Equal(t, tree.Root().Visits()-1, visits, "the first simulation expands the root")
	assert.Equal(t, uint32(100), tree.Root().Visits())
	assert.LessOrEqual(t, nn.calls, 100)
}

func TestRunFindsWinningMove(t *testing.T) {
	// X X ·
	// O O ·
	// · · ·
	s := play(t, 0, 3, 1, 4)
	tree := New(DefaultConfig(), &dummyNN{})
	res, err := tree.Run(context.Background(), s, 200, 2)
	require.NoError(t, err)

	best, ok := res.Best()
	require.True(t, ok)
	assert.Equal(t, game.Action(2), best)
	assert.Greater(t, res.Value, float32(0))
}

func TestRunOracleContract(t *testing.T) {
	s := play(t)
	nan := math32.NaN()
	cases := []struct {
		name string
		nn   brokenNN
	}{
		{"short policy", brokenNN{policy: uniform(8)}},
		{"negative probability", brokenNN{policy: []float32{-1, 0, 0, 0, 0, 0, 0, 0, 2}}},
		{"NaN probability", brokenNN{policy: []float32{nan, 0, 0, 0, 0, 0, 0, 0, 0}}},
		{"NaN value", brokenNN{policy: uniform(9), value: nan}},
		{"infinite value", brokenNN{policy: uniform(9), value: math32.Inf(1)}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tree := New(DefaultConfig(), c.nn)
			_, err := tree.Run(context.Background(), s, 10, 1)
			var oce *game.OracleContractError
			assert.ErrorAs(t, err, &oce)
		})
	}
}

func TestRunOracleError(t *testing.T) {
	boom := errors.New("boom")
	tree := New(DefaultConfig(), brokenNN{err: boom})
	_, err := tree.Run(context.Background(), play(t), 10, 1)
	assert.ErrorIs(t, err, boom)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tree := New(DefaultConfig(), &dummyNN{})
	_, err := tree.Run(ctx, play(t), 10, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMaskPolicy(t *testing.T) {
	s := play(t, 0, 1)
	policy := []float32{0.5, 0.5, 0, 0, 0, 0, 0, 0, 0}
	masked := MaskPolicy(policy, s)
	for i := 2; i < 9; i++ {
		assert.InDelta(t, 1.0/7, masked[i], 1e-6)
	}
	assert.Zero(t, masked[0])
	assert.Zero(t, masked[1])
	assert.Equal(t, float32(0.5), policy[0], "the input is not modified")

	policy = []float32{0.5, 0.1, 0.1, 0.3, 0, 0, 0, 0, 0}
	masked = MaskPolicy(policy, s)
	assert.InDelta(t, 0.25, masked[2], 1e-6)
	assert.InDelta(t, 0.75, masked[3], 1e-6)
}

func TestChoose(t *testing.T) {
	conf := DefaultConfig()
	conf.RandomCount = 2
	tree := New(conf, &dummyNN{}, WithSeed(1337))
	res := &Result{
		Policy: []float32{0, 0.25, 0, 0.75},
		Visits: []uint32{0, 1, 0, 3},
	}

	best, ok := tree.Choose(res, 2)
	require.True(t, ok)
	assert.Equal(t, game.Action(3), best)

	seen := make(map[game.Action]int)
	for i := 0; i < 200; i++ {
		a, ok := tree.Choose(res, 0)
		require.True(t, ok)
		seen[a]++
	}
	assert.Zero(t, seen[0])
	assert.Zero(t, seen[2])
	assert.NotZero(t, seen[1])
	assert.Greater(t, seen[3], seen[1])
}

func TestToDot(t *testing.T) {
	tree := New(DefaultConfig(), &dummyNN{})
	dot, err := tree.ToDot(true)
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph G")

	_, err = tree.Run(context.Background(), play(t, 0, 4, 1), 20, 1)
	require.NoError(t, err)
	dot, err = tree.ToDot(true)
	require.NoError(t, err)
	assert.Contains(t, dot, "0->1")
}
