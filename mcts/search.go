package mcts

import (
	"context"
	"fmt"
	"time"

	"github.com/azplay/azplay/game"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

/*
Here lies the search code, while node.go and tree.go handles the data structure stuff.

A simulation descends from the root with SelectBestChild while nodes are expanded, then either
scores a terminal leaf directly or asks the Inferencer for a policy and value, expands the leaf
with the masked policy, and backs the value up to the root.
*/

// Result is the outcome of a search.
type Result struct {
	// Policy is the visit distribution of the root's children over the action space.
	// It is all zeros when no action is available.
	Policy []float32
	Visits []uint32

	Value       float32     // mean value of the root, from the perspective of Player
	Player      game.Player // the player to move at the root
	Simulations int         // simulations that were actually run
}

// Available returns true if the search produced an action to play.
func (r *Result) Available() bool {
	for _, v := range r.Visits {
		if v > 0 {
			return true
		}
	}
	return false
}

// Best returns the most visited action. Ties go to the lowest action.
func (r *Result) Best() (game.Action, bool) {
	if !r.Available() {
		return game.NoAction, false
	}
	return game.Action(argmax(r.Policy)), true
}

// Ranked returns the visited actions, most visited first.
func (r *Result) Ranked() []Pair {
	var retVal []Pair
	for i, p := range r.Policy {
		if r.Visits[i] > 0 {
			retVal = append(retVal, Pair{Action: game.Action(i), Score: p})
		}
	}
	sortByScore(retVal)
	return retVal
}

func (r *Result) Format(s fmt.State, c rune) {
	fmt.Fprintf(s, "Player %v Value %.3f Simulations %d", r.Player, r.Value, r.Simulations)
	for _, p := range r.Ranked() {
		fmt.Fprintf(s, " %d:%.3f", p.Action, p.Score)
	}
}

// Search runs Budget simulations from state with the configured PUCT constant.
func (t *MCTS) Search(ctx context.Context, state *game.State) (*Result, error) {
	return t.Run(ctx, state, t.Budget, t.PUCT)
}

// Run builds a new tree rooted at state and runs the given number of simulations.
//
// No action is available (and no error is returned) when the state is terminal or simulations is 0.
// The tree is kept until the next search so that it can be inspected.
func (t *MCTS) Run(ctx context.Context, state *game.State, simulations int, exploration float32) (*Result, error) {
	if simulations < 0 {
		return nil, errors.WithStack(&game.ConfigurationError{Field: "simulations", Value: simulations})
	}
	if exploration < 0 || math32.IsNaN(exploration) || math32.IsInf(exploration, 0) {
		return nil, errors.WithStack(&game.ConfigurationError{Field: "exploration", Value: exploration})
	}

	root := t.NewRoot(state)
	n := state.ActionSpace()
	retVal := &Result{
		Policy: make([]float32, n),
		Visits: make([]uint32, n),
		Player: state.ToMove(),
	}
	if state.Terminal() || simulations == 0 {
		t.log.Debug().Bool("terminal", state.Terminal()).Msg("nothing to search")
		return retVal, nil
	}

	bounded := ctx
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		bounded, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	start := time.Now()
	for i := 0; i < simulations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "search cancelled after %d simulations", i)
		}
		if bounded.Err() != nil && i > 1 {
			break // out of time. What we have will do.
		}
		if err := t.simulate(root, exploration); err != nil {
			return nil, err
		}
		retVal.Simulations++
	}

	var total float32
	for _, kid := range t.Children(root.id) {
		child := t.nodeFromNaughty(kid)
		retVal.Visits[child.move] = child.visits
		total += float32(child.visits)
	}
	if total > 0 {
		for i, v := range retVal.Visits {
			retVal.Policy[i] = float32(v) / total
		}
	}
	retVal.Value = root.Value()
	t.log.Debug().
		Int("move", state.MoveNumber()).
		Int("simulations", retVal.Simulations).
		Int("nodes", len(t.nodes)).
		Dur("took", time.Since(start)).
		Msg("search")
	return retVal, nil
}

// simulate runs one simulation: SELECT, EXPAND and EVALUATE, BACKPROPAGATE.
func (t *MCTS) simulate(root *Node, c float32) (err error) {
	n := root
	for n.HasChildren() && !n.IsTerminal() {
		if n, err = n.SelectBestChild(c); err != nil {
			return err
		}
	}

	var value float32
	if n.IsTerminal() {
		value = n.TerminalValue(t.DrawValue)
	} else if value, err = t.expandAndEvaluate(n); err != nil {
		return err
	}
	n.Backpropagate(value)
	return nil
}

func (t *MCTS) expandAndEvaluate(n *Node) (value float32, err error) {
	var policy []float32
	if policy, value, err = t.nn.Infer(n.state); err != nil {
		return 0, errors.WithMessagef(err, "inference failed at move %d", n.state.MoveNumber())
	}
	if err = CheckOracle(policy, value, n.state.ActionSpace()); err != nil {
		return 0, err
	}
	if err = n.Expand(MaskPolicy(policy, n.state)); err != nil {
		return 0, err
	}
	return value, nil
}

// Choose picks the action to play from a search result. While the move number is below
// RandomCount, the action is sampled from the visit counts raised to 1/RandomTemperature.
// Otherwise, the most visited action is chosen.
func (t *MCTS) Choose(r *Result, moveNumber int) (game.Action, bool) {
	if !r.Available() {
		return game.NoAction, false
	}
	if moveNumber < t.RandomCount && t.RandomTemperature > 0 {
		return sample(r.Visits, t.RandomTemperature, t.rand), true
	}
	return r.Best()
}
