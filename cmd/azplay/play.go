package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/azplay/azplay"
	dual "github.com/azplay/azplay/dualnet"
	"github.com/azplay/azplay/encoding/gif"
	"github.com/azplay/azplay/game"
	"github.com/azplay/azplay/game/c4"
	"github.com/azplay/azplay/mcts"
	"github.com/azplay/azplay/oracle/onnx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func play(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	gameName := fs.String("game", "tictactoe", "game to play: tictactoe or connect4")
	mode := fs.String("mode", "pvc", "pvp (person against person), pvc (person against computer) or cvc (computer against computer)")
	games := fs.Int("n", 1, "number of games")
	sims := fs.Int("sims", 200, "simulations per move")
	puct := fs.Float64("puct", 2, "exploration constant")
	policyOnly := fs.Bool("policy", false, "the computer plays the move preferred by the neural network, without searching")
	model := fs.String("model", "", "checkpoint directory of a trained neural network")
	onnxPath := fs.String("onnx", "", "ONNX model to play with")
	gifPath := fs.String("gif", "", "write the games into this animated GIF")
	wsAddr := fs.String("ws", "", "stream the moves over a websocket at this address, e.g. :8080")
	seed := fs.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
	verbosity := fs.Int("v", 0, "verbosity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setupLogging(*verbosity)

	g, err := newGame(*gameName)
	if err != nil {
		return err
	}
	conf := mcts.DefaultConfig()
	conf.Budget = *sims
	conf.PUCT = float32(*puct)
	conf.RandomCount = 0
	if err = conf.Validate(); err != nil {
		return err
	}

	nn, err := loadOracle(g, *model, *onnxPath)
	if err != nil {
		return err
	}
	defer nn.Close()

	in := bufio.NewReader(os.Stdin)
	computer := func(name string) *azplay.Agent {
		agent := azplay.NewAgent(name, nn, conf, azplay.EncodePlanes, mcts.WithSeed(*seed))
		if *policyOnly {
			return azplay.NewHuman(name, func(s *game.State) (game.Action, error) { return agent.PolicyMove(s, nil) })
		}
		return agent
	}
	person := func(name string) *azplay.Agent {
		return azplay.NewHuman(name, func(s *game.State) (game.Action, error) { return askMove(os.Stdout, in, s) })
	}

	var a, b *azplay.Agent
	switch *mode {
	case "pvp":
		a, b = person("Player 1"), person("Player 2")
	case "pvc":
		a, b = person("You"), computer("Computer")
	case "cvc":
		a, b = computer("Computer 1"), computer("Computer 2")
	default:
		return errors.WithStack(&game.ConfigurationError{Field: "mode", Value: *mode})
	}

	outputs := encoders{&narrator{w: os.Stdout}}
	if *gifPath != "" {
		f, err := os.Create(*gifPath)
		if err != nil {
			return errors.WithStack(err)
		}
		defer f.Close()
		outputs = append(outputs, gif.NewEncoder(f, 40))
	}
	if *wsAddr != "" {
		stream := NewStream()
		srv := &http.Server{Addr: *wsAddr, Handler: stream.Mux()}
		go func() {
			log.Info().Str("addr", *wsAddr).Msg("Streaming moves on /ws")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("websocket server")
			}
		}()
		defer srv.Close()
		outputs = append(outputs, stream)
	}

	arena := azplay.NewArena(g, a, b, "", *seed)
	fmt.Printf("%s\n%s", g.Name(), g.InitialState())
	for i := 0; i < *games; i++ {
		if _, err = arena.Play(ctx, outputs); err != nil {
			return err
		}
	}
	fmt.Printf("%s won %v, %s won %v, %v draws\n", a.Name(), a.Wins, b.Name(), b.Wins, a.Draw)
	return outputs.Flush()
}

// loadOracle loads an ONNX model, a checkpoint, or falls back to uniform priors.
func loadOracle(g game.Game, checkpoint, onnxPath string) (azplay.Inferer, error) {
	switch {
	case onnxPath != "":
		return onnx.New(onnx.DefaultConfig(g, onnxPath))
	case checkpoint != "":
		rows, cols := g.BoardSize()
		o, err := azplay.NewDualOracle(dual.DefaultConf(rows, cols, g.ActionSpace()))
		if err != nil {
			return nil, err
		}
		if err = azplay.LoadOracle(checkpoint, o); err != nil {
			return nil, err
		}
		return o, nil
	}
	log.Info().Msg("No neural network given. The computer searches with uniform priors")
	return azplay.UniformOracle{ActionSpace: g.ActionSpace()}, nil
}

// askMove reads a move from in. Connect Four moves are columns, other moves are "row col" or positions, counting from 1.
func askMove(w io.Writer, in *bufio.Reader, s *game.State) (game.Action, error) {
	for {
		if _, isC4 := s.Game().(*c4.Game); isC4 {
			fmt.Fprintf(w, "%s to move. Column: ", s.ToMove())
		} else {
			fmt.Fprintf(w, "%s to move. Row and column: ", s.ToMove())
		}
		line, err := in.ReadString('\n')
		if err != nil {
			return game.NoAction, errors.WithStack(err)
		}
		a, err := parseMove(s, line)
		if err == nil {
			return a, nil
		}
		fmt.Fprintln(w, err)
	}
}

func parseMove(s *game.State, line string) (game.Action, error) {
	fields := strings.Fields(line)
	nums := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return game.NoAction, errors.Errorf("%q is not a number", f)
		}
		nums[i] = n - 1
	}
	rows, cols := s.BoardSize()
	_, isC4 := s.Game().(*c4.Game)
	switch {
	case isC4 && len(nums) == 1:
		if nums[0] < 0 || nums[0] >= cols {
			return game.NoAction, errors.Errorf("There are %d columns", cols)
		}
		return c4.Drop(s, nums[0])
	case len(nums) == 1:
		return game.Action(nums[0]), nil
	case len(nums) == 2:
		if nums[0] < 0 || nums[0] >= rows || nums[1] < 0 || nums[1] >= cols {
			return game.NoAction, errors.Errorf("The board has %d rows and %d columns", rows, cols)
		}
		return game.Action(nums[0]*cols + nums[1]), nil
	}
	return game.NoAction, errors.Errorf("Cannot understand %q", strings.TrimSpace(line))
}

// narrator tells the story of a game as text.
type narrator struct {
	w io.Writer
}

func (n *narrator) Encode(ms game.MetaState) error {
	s := ms.State()
	row, col := s.Coord(s.LastAction())
	fmt.Fprintf(n.w, "%s plays %d,%d\n%s", s.LastMover(), row+1, col+1, s)
	if ended, winner := s.Ended(); ended {
		if winner == game.Nobody {
			fmt.Fprintln(n.w, "It's a draw")
		} else {
			fmt.Fprintf(n.w, "%s wins\n", winner)
		}
	}
	return nil
}

func (n *narrator) Flush() error { return nil }

// encoders sends every game to all of its encoders.
type encoders []azplay.OutputEncoder

func (e encoders) Encode(ms game.MetaState) error {
	for _, enc := range e {
		if err := enc.Encode(ms); err != nil {
			return err
		}
	}
	return nil
}

func (e encoders) Flush() error {
	for _, enc := range e {
		if err := enc.Flush(); err != nil {
			return err
		}
	}
	return nil
}
