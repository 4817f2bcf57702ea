package azplay

import (
	"testing"

	"github.com/azplay/azplay/game"
	"github.com/azplay/azplay/game/mnk"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateBoard(t *testing.T) {
	//
	// ⎢ O · · · X ⎥
	// ⎢ · O · X · ⎥ // this line is to break rotational symmetry
	// ⎢ · · · · · ⎥
	// ⎢ · · · · · ⎥
	// ⎢ X · · · O ⎥

	m, n := 5, 5
	board := []float32{
		-1, 0, 0, 0, 1,
		0, -1, 0, 1, 0,
		0, 0, 0, 0, 0,
		0, 0, 0, 0, 0,
		1, 0, 0, 0, -1,
	}

	rot1, err := RotateBoard(board, m, n)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, []float32{
		1, 0, 0, 0, -1,
		0, 1, 0, 0, 0,
		0, 0, 0, 0, 0,
		0, -1, 0, 0, 0,
		-1, 0, 0, 0, 1,
	}, rot1, "a quarter turn anticlockwise")

	rot2, err := RotateBoard(rot1, m, n)
	if err != nil {
		t.Fatal(err)
	}
	rot3, err := RotateBoard(rot2, m, n)
	if err != nil {
		t.Fatal(err)
	}
	rot4, err := RotateBoard(rot3, m, n)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, board, rot4, "After 4 rotations the board should be the same")

	_, err = RotateBoard(make([]float32, 6), 2, 3)
	assert.Error(t, err)
}

func TestMirrorBoard(t *testing.T) {
	board := []float32{
		1, 2, 3,
		4, 5, 6,
	}
	mirrored, err := MirrorBoard(board, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 2, 1, 6, 5, 4}, mirrored)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, board, "the input is not modified")

	_, err = MirrorBoard(board, 3, 3)
	assert.Error(t, err)
}

func TestSymmetryAugmenter(t *testing.T) {
	s := mnk.TicTacToe().InitialState()
	for _, a := range []game.Action{0, 1} {
		var err error
		s, err = s.Play(a)
		require.NoError(t, err)
	}
	policy := make([]float32, 9)
	policy[2], policy[5] = 0.75, 0.25
	ex := Example{Board: EncodePlanes(s), Policy: policy, Value: -1}

	examples := SymmetryAugmenter(3, 3)(ex)
	require.Len(t, examples, 8)
	if diff := cmp.Diff(ex, examples[0]); diff != "" {
		t.Errorf("the first example is the original (-want +got):\n%s", diff)
	}
	for i, aug := range examples {
		assert.Len(t, aug.Board, 27)
		assert.Equal(t, float32(-1), aug.Value)
		for pos, p := range aug.Policy {
			if p > 0 {
				assert.Equal(t, float32(1), aug.Board[9+pos], "example %d: policy at %d must be on an empty position", i, pos)
			}
		}
		for j := 0; j < i; j++ {
			assert.NotEqual(t, examples[j].Board, aug.Board, "examples %d and %d", j, i)
		}
	}

	c4 := SymmetryAugmenter(6, 7)(Example{Board: make([]float32, 3*42), Policy: make([]float32, 42)})
	assert.Len(t, c4, 2)

	bad := Example{Board: make([]float32, 10), Policy: policy}
	assert.Equal(t, []Example{bad}, SymmetryAugmenter(3, 3)(bad))
}
