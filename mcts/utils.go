package mcts

import (
	"fmt"
	"sort"

	"github.com/azplay/azplay/game"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gorgonia.org/vecf32"
)

// Pair is a tuple of score and action
type Pair struct {
	Action game.Action
	Score  float32
}

func (p Pair) Format(s fmt.State, c rune) { fmt.Fprintf(s, "%d:%.3f", p.Action, p.Score) }

// byScore is a sortable list of pairs It sorts the list with best score fist
type byScore []Pair

func (l byScore) Len() int           { return len(l) }
func (l byScore) Less(i, j int) bool { return l[i].Score > l[j].Score }
func (l byScore) Swap(i, j int)      { l[i], l[j] = l[j], l[i] }

func sortByScore(l []Pair) { sort.Stable(byScore(l)) }

func argmax(a []float32) int {
	var retVal int
	var max float32 = math32.Inf(-1)
	for i := range a {
		if a[i] > max {
			max = a[i]
			retVal = i
		}
	}
	return retVal
}

// CheckOracle checks that a policy is a non-negative vector over the action space and that the value is finite.
func CheckOracle(policy []float32, value float32, actionSpace int) error {
	if len(policy) != actionSpace {
		return errors.WithStack(&game.OracleContractError{
			Reason: fmt.Sprintf("policy has %d entries, the action space is %d", len(policy), actionSpace),
		})
	}
	if math32.IsNaN(value) || math32.IsInf(value, 0) {
		return errors.WithStack(&game.OracleContractError{Reason: fmt.Sprintf("value is %v", value)})
	}
	for i, p := range policy {
		if math32.IsNaN(p) || math32.IsInf(p, 0) || p < 0 {
			return errors.WithStack(&game.OracleContractError{Reason: fmt.Sprintf("policy[%d] is %v", i, p)})
		}
	}
	return nil
}

// MaskPolicy zeroes out the illegal actions of policy and renormalizes it.
// If the legal actions carry no probability mass, they are given equal probability.
func MaskPolicy(policy []float32, state *game.State) []float32 {
	valid := state.ValidActions()
	mask := make([]float32, len(policy))
	for _, a := range valid {
		mask[a] = 1
	}
	retVal := make([]float32, len(policy))
	copy(retVal, policy)
	vecf32.Mul(retVal, mask)

	legalSum := vecf32.Sum(retVal)
	if legalSum > math32.SmallestNonzeroFloat32 {
		vecf32.Scale(retVal, 1/legalSum)
		return retVal
	}
	if len(valid) > 0 {
		copy(retVal, mask)
		vecf32.Scale(retVal, 1/float32(len(valid)))
	}
	return retVal
}

// sample picks an index with probability proportional to visits^(1/temperature).
func sample(visits []uint32, temperature float32, r *rand.Rand) game.Action {
	var norm float32
	for _, v := range visits {
		if float32(v) > norm {
			norm = float32(v)
		}
	}

	var accum float32
	accumVector := make([]float32, len(visits))
	for i, v := range visits {
		if v > 0 {
			accum += math32.Pow(float32(v)/norm, 1/temperature)
		}
		accumVector[i] = accum
	}
	rnd := r.Float32() * accum // uniform distro: rnd() * (max-min) + min
	for i, a := range accumVector {
		if rnd < a && visits[i] > 0 {
			return game.Action(i)
		}
	}
	return game.Action(argmax(accumVector)) // rounding
}
