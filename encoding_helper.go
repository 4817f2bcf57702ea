package azplay

import (
	"github.com/azplay/azplay/game"
	"github.com/pkg/errors"
)

// EncodePlanes encodes a game state as three planes from the perspective of the player to move:
// the opponent's pieces, the empty positions and the player's own pieces.
func EncodePlanes(s *game.State) []float32 { return s.Encode() }

// RotateBoard rotates a square board a quarter turn anticlockwise.
func RotateBoard(board []float32, m, n int) ([]float32, error) {
	if m != n {
		return nil, errors.Errorf("Cannot handle m %d, n %d. This function only takes square boards", m, n)
	}
	if len(board) != m*n {
		return nil, errors.Errorf("Expected a board of %d. Got %d", m*n, len(board))
	}
	copied := make([]float32, len(board))
	copy(copied, board)
	it := rows(copied, m, n)
	for i := 0; i < m/2; i++ {
		mi1 := m - i - 1
		for j := i; j < mi1; j++ {
			mj1 := m - j - 1
			tmp := it[i][j]
			// right to top
			it[i][j] = it[j][mi1]

			// bottom to right
			it[j][mi1] = it[mi1][mj1]

			// left to bottom
			it[mi1][mj1] = it[mj1][i]

			// tmp is left
			it[mj1][i] = tmp
		}
	}
	return copied, nil
}

// MirrorBoard flips a board of m rows and n columns left to right.
func MirrorBoard(board []float32, m, n int) ([]float32, error) {
	if len(board) != m*n {
		return nil, errors.Errorf("Expected a board of %d. Got %d", m*n, len(board))
	}
	copied := make([]float32, len(board))
	copy(copied, board)
	for _, row := range rows(copied, m, n) {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			row[i], row[j] = row[j], row[i]
		}
	}
	return copied, nil
}

// rows returns views of the rows of a board.
func rows(board []float32, m, n int) [][]float32 {
	retVal := make([][]float32, m)
	for i := range retVal {
		retVal[i] = board[i*n : (i+1)*n : (i+1)*n]
	}
	return retVal
}

type transform func(board []float32, m, n int) ([]float32, error)

// planewise applies f to every plane of m×n of the encoded board.
func planewise(board []float32, m, n int, f transform) ([]float32, error) {
	size := m * n
	if size == 0 || len(board)%size != 0 {
		return nil, errors.Errorf("Cannot split %d values into planes of %d×%d", len(board), m, n)
	}
	retVal := make([]float32, 0, len(board))
	for start := 0; start < len(board); start += size {
		plane, err := f(board[start:start+size], m, n)
		if err != nil {
			return nil, err
		}
		retVal = append(retVal, plane...)
	}
	return retVal, nil
}

// SymmetryAugmenter creates an Augmenter for boards of m rows and n columns which are encoded as planes.
// Square boards have eight symmetries (the rotations and their mirror images). Other boards only have their mirror image.
// The example itself is always the first returned.
func SymmetryAugmenter(m, n int) Augmenter {
	var transforms [][]transform
	if m == n {
		for r := 0; r < 4; r++ {
			var ts []transform
			for i := 0; i < r; i++ {
				ts = append(ts, RotateBoard)
			}
			transforms = append(transforms, ts, append(ts[:len(ts):len(ts)], MirrorBoard))
		}
	} else {
		transforms = [][]transform{nil, {MirrorBoard}}
	}

	return func(ex Example) []Example {
		retVal := make([]Example, 0, len(transforms))
	next:
		for _, ts := range transforms {
			board, policy := ex.Board, ex.Policy
			for _, t := range ts {
				var err error
				if board, err = planewise(board, m, n, t); err != nil {
					continue next
				}
				if policy, err = t(policy, m, n); err != nil {
					continue next
				}
			}
			retVal = append(retVal, Example{Board: board, Policy: policy, Value: ex.Value})
		}
		if len(retVal) == 0 {
			return []Example{ex}
		}
		return retVal
	}
}
