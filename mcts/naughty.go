package mcts

// naughty is essentially *Node: an index into the arena of the tree.
type naughty int

func (n naughty) isValid() bool { return n >= 0 }

const (
	nilNode naughty = -1
)
