package mcts

import (
	"fmt"

	"github.com/azplay/azplay/game"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// ErrAlreadyExpanded is returned when Expand is called on a node that already has children.
var ErrAlreadyExpanded = errors.New("node has already been expanded")

// Node is a node of the search tree. It owns its state.
//
// Values are from the perspective of the player to move in the node's state.
type Node struct {
	id     naughty
	parent naughty
	move   game.Action // the action that led to this node. NoAction for the root
	state  *game.State

	visits   uint32  // N(s, a) in the literature
	valueSum float32 // sum of the values backed up through this node
	prior    float32 // P(s, a) from the policy of the parent

	tree *MCTS
}

func (n *Node) Format(s fmt.State, c rune) {
	fmt.Fprintf(s, "{NodeID: %v Move: %v, Prior: %v, ValueSum %v Visits %v}", n.id, n.move, n.prior, n.valueSum, n.visits)
}

func (n *Node) ID() int { return int(n.id) }

// Move gets the move associated with the node
func (n *Node) Move() game.Action { return n.move }

// State returns the state of the node. It must not be modified.
func (n *Node) State() *game.State { return n.state }

func (n *Node) Visits() uint32    { return n.visits }
func (n *Node) ValueSum() float32 { return n.valueSum }
func (n *Node) Prior() float32    { return n.prior }

// Value returns the mean backed up value, or 0 if the node was never visited.
func (n *Node) Value() float32 {
	if n.visits == 0 {
		return 0
	}
	return n.valueSum / float32(n.visits)
}

// Parent returns the parent of the node, or nil for the root.
func (n *Node) Parent() *Node {
	if !n.parent.isValid() {
		return nil
	}
	return n.tree.nodeFromNaughty(n.parent)
}

// Children returns the children of the node in the order they were expanded.
func (n *Node) Children() []*Node {
	kids := n.tree.Children(n.id)
	retVal := make([]*Node, len(kids))
	for i, kid := range kids {
		retVal[i] = n.tree.nodeFromNaughty(kid)
	}
	return retVal
}

// HasChildren returns true if the node has children. A node with children is fully expanded.
func (n *Node) HasChildren() bool { return len(n.tree.children[n.id]) > 0 }

// IsTerminal returns true if the game is over in the node's state.
func (n *Node) IsTerminal() bool { return n.state.Terminal() }

// TerminalValue is the value of a terminal node. The outcome of a state is from the
// perspective of the player who just moved, so it is negated.
func (n *Node) TerminalValue(drawValue float32) float32 {
	return -n.state.Outcome().Outcome.Value(drawValue)
}

// UCB is the upper confidence bound of child, as seen from n.
//
// The upper bound formula is as such
//
//	U(s, a) = Q(s, a) + c * P(s, a) * (sqrt(parent visits) / (1 + visits to the child))
//
// where Q(s, a) = 1 - (child's value sum / (1 + visits to the child)) / 2.
// The child's values are from the child's perspective, hence 1 minus.
// Q is 0 when the parent was never visited.
func (n *Node) UCB(child *Node, c float32) float32 {
	denominator := 1.0 + float32(child.visits)
	var qsa float32
	if n.visits > 0 {
		qsa = 1 - (child.valueSum/denominator)/2
	}
	numerator := math32.Sqrt(float32(n.visits))
	return qsa + c*child.prior*(numerator/denominator)
}

// SelectBestChild returns the child with the highest UCB. Ties go to the child that was expanded first.
func (n *Node) SelectBestChild(c float32) (*Node, error) {
	children := n.tree.Children(n.id)
	if len(children) == 0 {
		return nil, errors.WithStack(&game.NoLegalActionError{Op: "SelectBestChild"})
	}

	best := n.tree.nodeFromNaughty(children[0])
	bestValue := n.UCB(best, c)
	for _, kid := range children[1:] {
		child := n.tree.nodeFromNaughty(kid)
		if usa := n.UCB(child, c); usa > bestValue {
			bestValue = usa
			best = child
		}
	}
	n.tree.log.Debug().Int("node", int(n.id)).Int32("move", int32(best.move)).Float32("ucb", bestValue).Msg("select")
	return best, nil
}

// Expand creates one child per action with a non-zero probability in policy, in action order.
// policy must cover the whole action space.
func (n *Node) Expand(policy []float32) error {
	switch {
	case n.HasChildren():
		return errors.WithStack(ErrAlreadyExpanded)
	case n.state.Terminal():
		return errors.WithStack(&game.NoLegalActionError{Op: "Expand"})
	case len(policy) != n.state.ActionSpace():
		return errors.WithStack(&game.OracleContractError{
			Reason: fmt.Sprintf("policy has %d entries, the action space is %d", len(policy), n.state.ActionSpace()),
		})
	}

	player := n.state.ToMove()
	var nodelist []Pair
	var states []*game.State
	for i, prob := range policy {
		if prob <= 0 {
			continue
		}
		next, err := n.state.Apply(game.Action(i), player)
		if err != nil {
			return errors.WithMessagef(err, "expanding node %d", n.id)
		}
		nodelist = append(nodelist, Pair{Action: game.Action(i), Score: prob})
		states = append(states, next)
	}

	kids := make([]naughty, 0, len(nodelist))
	for i, p := range nodelist {
		kids = append(kids, n.tree.New(n.id, p.Action, states[i], p.Score))
	}
	n.tree.children[n.id] = kids
	n.tree.log.Debug().Int("node", int(n.id)).Int("children", len(kids)).Msg("expand")
	return nil
}

// Backpropagate adds v to this node and -v to its parent, alternating all the way up to the root.
// Every node on the path is visited once more.
func (n *Node) Backpropagate(v float32) {
	t := n.tree
	for id := n.id; id.isValid(); id = t.nodes[id].parent {
		node := t.nodes[id]
		node.valueSum += v
		node.visits++
		v = -v
	}
}
