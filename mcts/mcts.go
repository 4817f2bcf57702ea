// Package mcts implements a Monte Carlo tree search guided by a policy/value oracle.
//
// Nodes live in an arena owned by the tree (MCTS). A node refers to its parent and
// children by index into the arena, so the tree can be walked in both directions
// without reference cycles.
package mcts

import "github.com/azplay/azplay/game"

// Inferencer is essentially the neural network.
//
// The policy is a distribution over the action space of the state, from the perspective
// of the player to move. The value is the expected outcome for that player, in [-1, 1].
type Inferencer interface {
	Infer(state *game.State) (policy []float32, value float32, err error)
}
