package mcts

import (
	"time"

	"github.com/azplay/azplay/game"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
)

// Config is the structure to configure the MCTS tree
type Config struct {
	// PUCT is the exploration constant. 0 means pure exploitation.
	PUCT float32 `json:"puct"`
	// Budget is the number of simulations per search.
	Budget int `json:"budget"`
	// Timeout bounds a search in wall clock time. 0 means no bound.
	Timeout time.Duration `json:"timeout"`

	RandomCount       int     `json:"random_count"`       // if the move number is less than this, we should randomize
	RandomTemperature float32 `json:"random_temperature"` // temperature of the visit distribution when randomizing
	DrawValue         float32 `json:"draw_value"`         // value of a drawn game
}

func DefaultConfig() Config {
	return Config{
		PUCT:              2,
		Budget:            60,
		RandomCount:       9,
		RandomTemperature: 1,
	}
}

func (c Config) IsValid() bool { return c.Validate() == nil }

// Validate returns a *game.ConfigurationError describing the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.PUCT < 0 || math32.IsNaN(c.PUCT) || math32.IsInf(c.PUCT, 0):
		return errors.WithStack(&game.ConfigurationError{Field: "PUCT", Value: c.PUCT})
	case c.Budget < 0:
		return errors.WithStack(&game.ConfigurationError{Field: "Budget", Value: c.Budget})
	case c.Timeout < 0:
		return errors.WithStack(&game.ConfigurationError{Field: "Timeout", Value: c.Timeout})
	case c.RandomTemperature < 0:
		return errors.WithStack(&game.ConfigurationError{Field: "RandomTemperature", Value: c.RandomTemperature})
	case c.DrawValue < -1 || c.DrawValue > 1:
		return errors.WithStack(&game.ConfigurationError{Field: "DrawValue", Value: c.DrawValue})
	}
	return nil
}

// MCTS is essentially a "global" manager of sorts for the memories. The goal is to build MCTS without much pointer chasing.
//
// A MCTS runs one simulation at a time and is not safe for concurrent use. Use one tree per goroutine.
type MCTS struct {
	Config
	nn   Inferencer
	rand *rand.Rand
	log  zerolog.Logger

	// memory related fields
	nodes    []*Node
	children [][]naughty
	root     naughty
}

// Option configures a MCTS.
type Option func(t *MCTS)

// WithLogger makes the tree log its selections and expansions at debug level.
func WithLogger(l zerolog.Logger) Option { return func(t *MCTS) { t.log = l } }

// WithSeed seeds the random number generator used to choose moves.
func WithSeed(seed uint64) Option { return func(t *MCTS) { t.rand = rand.New(rand.NewSource(seed)) } }

func New(conf Config, nn Inferencer, opts ...Option) *MCTS {
	retVal := &MCTS{
		Config: conf,
		nn:     nn,
		rand:   rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
		log:    zerolog.Nop(),

		nodes:    make([]*Node, 0, 1024),
		children: make([][]naughty, 0, 1024),
		root:     nilNode,
	}
	for _, opt := range opts {
		opt(retVal)
	}
	return retVal
}

// New creates a new node in the arena.
func (t *MCTS) New(parent naughty, move game.Action, state *game.State, prior float32) (retVal naughty) {
	retVal = naughty(len(t.nodes))
	t.nodes = append(t.nodes, &Node{
		id:     retVal,
		parent: parent,
		move:   move,
		state:  state,
		prior:  prior,
		tree:   t,
	})
	t.children = append(t.children, nil)
	return retVal
}

// NewRoot discards the current tree and starts a new one at state.
func (t *MCTS) NewRoot(state *game.State) *Node {
	t.Reset()
	t.root = t.New(nilNode, game.NoAction, state, 0)
	return t.nodes[t.root]
}

// Root returns the root of the last search, or nil.
func (t *MCTS) Root() *Node {
	if !t.root.isValid() {
		return nil
	}
	return t.nodes[t.root]
}

func (t *MCTS) Nodes() int { return len(t.nodes) }

// Children returns the children of a node.
func (t *MCTS) Children(of naughty) []naughty { return t.children[of] }

func (t *MCTS) nodeFromNaughty(n naughty) *Node { return t.nodes[n] }

// Reset releases every node of the tree.
func (t *MCTS) Reset() {
	for i := range t.nodes {
		t.nodes[i] = nil
		t.children[i] = nil
	}
	t.nodes = t.nodes[:0]
	t.children = t.children[:0]
	t.root = nilNode
}
