package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/azplay/azplay"
	"github.com/azplay/azplay/encoding/gif"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

func train(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	gameName := fs.String("game", "tictactoe", "game to learn: tictactoe or connect4")
	generations := fs.Int("generations", 10, "number of generations")
	games := fs.Int("games", 20, "self-play games per generation")
	epochs := fs.Int("epochs", 5, "passes over the examples per generation")
	batch := fs.Int("batch", 32, "training batch size")
	sims := fs.Int("sims", 100, "simulations per move")
	puct := fs.Float64("puct", 2, "exploration constant")
	workers := fs.Int("workers", 4, "self-play games played in parallel")
	threshold := fs.Float64("threshold", 0.55, "share of the decisive arena games a trained network has to win to replace the current one. 0 always replaces it")
	arenaGames := fs.Int("arena", 10, "arena games per generation")
	maxExamples := fs.Int("max-examples", 10000, "maximum number of examples trained on per generation. 0 for no limit")
	out := fs.String("out", "", "directory to write a checkpoint of every generation into")
	data := fs.String("data", "", "directory of checkpoints whose examples are trained on before self play")
	resume := fs.String("resume", "", "checkpoint directory of the neural network to start from")
	augment := fs.Bool("augment", true, "add the symmetries of every self-play position to the examples")
	gifPath := fs.String("gif", "", "write the arena games into this animated GIF")
	wsAddr := fs.String("ws", "", "stream the arena moves over a websocket at this address, e.g. :8080")
	showTUI := fs.Bool("tui", false, "show a dashboard instead of the log")
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
	rows, cols := g.BoardSize()

	conf := azplay.DefaultConfig(g)
	conf.NNConf.BatchSize = *batch
	conf.MCTSConf.Budget = *sims
	conf.MCTSConf.PUCT = float32(*puct)
	conf.Generations = *generations
	conf.SelfPlayGames = *games
	conf.Epochs = *epochs
	conf.BatchSize = *batch
	conf.Workers = *workers
	conf.UpdateThreshold = *threshold
	conf.ArenaGames = *arenaGames
	conf.MaxExamples = *maxExamples
	conf.CheckpointDir = *out
	if *augment {
		conf.Augmenter = azplay.SymmetryAugmenter(rows, cols)
	}

	oracle, err := azplay.NewDualOracle(conf.NNConf)
	if err != nil {
		return err
	}
	if *resume != "" {
		if err = azplay.LoadOracle(*resume, oracle); err != nil {
			return errors.WithMessagef(err, "Unable to resume from %v", *resume)
		}
		// the network trains on batches of the size it was built with
		conf.NNConf = oracle.Dual().Config
		conf.BatchSize = conf.NNConf.BatchSize
		log.Info().Str("checkpoint", *resume).Int("batch", conf.BatchSize).Msg("Resumed")
	}
	if *data != "" {
		examples, err := azplay.LoadExamples(*data)
		if err != nil {
			return err
		}
		batches, err := azplay.Train(oracle, examples, conf.Epochs, conf.BatchSize, rand.New(rand.NewSource(*seed)))
		if err != nil {
			return errors.WithMessage(err, "Unable to train on the recorded examples")
		}
		log.Info().Int("examples", len(examples)).Int("batches", batches).Float32("cost", oracle.Cost()).Msg("Trained on the recorded examples")
	}

	var outputs encoders
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
			log.Info().Str("addr", *wsAddr).Msg("Streaming arena moves on /ws")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("websocket server")
			}
		}()
		defer srv.Close()
		outputs = append(outputs, stream)
	}
	if len(outputs) > 0 {
		conf.OutputEncoder = outputs
	}

	var az *azplay.AZ
	var updates chan tea.Msg
	logger := log.Logger
	if *showTUI {
		// the dashboard owns the terminal
		if *out == "" {
			logger = zerolog.Nop()
		} else {
			if err = os.MkdirAll(*out, 0o755); err != nil {
				return errors.WithStack(err)
			}
			logFile, err := os.Create(filepath.Join(*out, "azplay.log"))
			if err != nil {
				return errors.WithStack(err)
			}
			defer logFile.Close()
			logger = zerolog.New(logFile).With().Timestamp().Logger()
		}
		updates = make(chan tea.Msg, 256)
		conf.Observer = observer(updates, func() int { return az.Generation() })
	}

	if az, err = azplay.New(g, oracle, conf, azplay.WithLogger(logger), azplay.WithSeed(*seed)); err != nil {
		return err
	}
	defer func() { az.Oracle().Close() }()

	if !*showTUI {
		err = az.Learn(ctx)
	} else {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		learnErr := make(chan error, 1)
		go func() {
			err := az.Learn(ctx)
			learnErr <- err
			select {
			case updates <- LearnDone{Err: err}:
			case <-ctx.Done():
			}
		}()
		p := tea.NewProgram(newDashboard(g.Name(), *generations, updates), tea.WithContext(ctx))
		if _, err = p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return errors.WithStack(err)
		}
		cancel()
		err = <-learnErr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if *out != "" {
		if err := az.Dump(filepath.Join(*out, azplay.StatsFile)); err != nil {
			return err
		}
	}
	if err := outputs.Flush(); err != nil {
		return err
	}
	log.Info().Int("generations", az.Generation()).Msg("Learning stopped")
	return nil
}
