package azplay

import (
	"context"
	"sync"

	"github.com/azplay/azplay/game"
	"github.com/azplay/azplay/mcts"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// MoveFunc chooses the move to play in s without searching, e.g. by asking a person.
type MoveFunc func(s *game.State) (game.Action, error)

// An Agent is a player, AI or Human
type Agent struct {
	NN     Inferer
	MCTS   *mcts.MCTS
	Player game.Player
	Enc    GameEncoder
	Input  MoveFunc // when set, moves come from Input instead of the search

	// Statistics
	Wins float32
	Loss float32
	Draw float32
	sync.Mutex

	name string
}

// NewAgent creates an agent searching with conf, guided by nn.
func NewAgent(name string, nn Inferer, conf mcts.Config, enc GameEncoder, opts ...mcts.Option) *Agent {
	if enc == nil {
		enc = EncodePlanes
	}
	retVal := &Agent{
		NN:   nn,
		Enc:  enc,
		name: name,
	}
	retVal.MCTS = mcts.New(conf, retVal, opts...)
	return retVal
}

// NewHuman creates an agent whose moves come from in.
func NewHuman(name string, in MoveFunc) *Agent {
	return &Agent{Input: in, Enc: EncodePlanes, name: name}
}

func (a *Agent) Name() string { return a.name }

// Infer encodes the state and runs it through the neural network. This is mainly used to implement a Inferencer such that the MCTS search can use it.
func (a *Agent) Infer(s *game.State) (policy []float32, value float32, err error) {
	if a.NN == nil {
		return nil, 0, errors.Errorf("Agent %v has no neural network", a.name)
	}
	if policy, value, err = a.NN.Infer(a.Enc(s)); err != nil {
		if el, ok := a.NN.(ExecLogger); ok {
			return nil, 0, errors.WithMessage(err, el.ExecLog())
		}
		return nil, 0, err
	}
	return policy, value, nil
}

// Search searches the game state.
func (a *Agent) Search(ctx context.Context, s *game.State) (*mcts.Result, error) {
	return a.MCTS.Search(ctx, s)
}

// Move returns the action the agent plays in s. The search result is nil when the agent has an Input.
func (a *Agent) Move(ctx context.Context, s *game.State) (game.Action, *mcts.Result, error) {
	if a.Input != nil {
		move, err := a.Input(s)
		return move, nil, err
	}
	res, err := a.Search(ctx, s)
	if err != nil {
		return game.NoAction, nil, err
	}
	move, ok := a.MCTS.Choose(res, s.MoveNumber())
	if !ok {
		return game.NoAction, res, errors.WithStack(&game.NoLegalActionError{Op: "Move"})
	}
	return move, res, nil
}

// PolicyMove picks a move from the neural network's policy alone, without searching.
// When r is nil, the most probable legal move is played. Otherwise the move is sampled.
func (a *Agent) PolicyMove(s *game.State, r *rand.Rand) (game.Action, error) {
	if s.Terminal() || len(s.ValidActions()) == 0 {
		return game.NoAction, errors.WithStack(&game.NoLegalActionError{Op: "PolicyMove"})
	}
	policy, value, err := a.Infer(s)
	if err != nil {
		return game.NoAction, err
	}
	if err = mcts.CheckOracle(policy, value, s.ActionSpace()); err != nil {
		return game.NoAction, err
	}
	policy = mcts.MaskPolicy(policy, s)
	if r == nil {
		return game.Action(argmax(policy)), nil
	}

	rnd := r.Float32()
	var accum float32
	for _, v := range s.ValidActions() {
		accum += policy[v]
		if rnd < accum {
			return v, nil
		}
	}
	valid := s.ValidActions()
	return valid[len(valid)-1], nil // rounding
}

func (a *Agent) resetStats() {
	a.Lock()
	a.Wins = 0
	a.Loss = 0
	a.Draw = 0
	a.Unlock()
}

func argmax(a []float32) int {
	var retVal int
	var max float32 = -1
	for i := range a {
		if a[i] > max {
			max = a[i]
			retVal = i
		}
	}
	return retVal
}
