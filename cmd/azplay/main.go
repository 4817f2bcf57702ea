// Command azplay plays and trains board games with AlphaZero.
//
//	azplay play -game tictactoe -mode pvc
//	azplay train -game connect4 -generations 20 -out checkpoints
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/azplay/azplay/game"
	"github.com/azplay/azplay/game/c4"
	"github.com/azplay/azplay/game/mnk"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: azplay <command> [flags]

commands:
	play    play a game: person against person, person against computer, or computer against computer
	train   learn a game by self play

Run azplay <command> -h for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "play":
		err = play(ctx, os.Args[2:])
	case "train":
		err = train(ctx, os.Args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Msg("azplay failed")
		os.Exit(1)
	}
}

// setupLogging logs to stderr for people.
func setupLogging(verbosity int) {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()
	switch {
	case verbosity >= 2:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case verbosity == 1:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func newGame(name string) (game.Game, error) {
	switch strings.ToLower(name) {
	case "tictactoe", "ttt":
		return mnk.TicTacToe(), nil
	case "connect4", "c4":
		return c4.Connect4(), nil
	}
	return nil, errors.WithStack(&game.ConfigurationError{Field: "game", Value: name})
}
