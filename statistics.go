package azplay

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Statistics records the arena results of the neural network of every generation.
type Statistics struct {
	Creation []string
	Wins     map[string][]float32
	Losses   map[string][]float32
	Draws    map[string][]float32
}

func makeStatistics() Statistics {
	return Statistics{
		Creation: make([]string, 0, 64),
		Wins:     make(map[string][]float32),
		Losses:   make(map[string][]float32),
		Draws:    make(map[string][]float32),
	}
}

func (s *Statistics) update(name string, wins, losses, draws float32) {
	if _, ok := s.Wins[name]; !ok {
		s.Creation = append(s.Creation, name)
	}

	s.Wins[name] = append(s.Wins[name], wins)
	s.Losses[name] = append(s.Losses[name], losses)
	s.Draws[name] = append(s.Draws[name], draws)
}

// WriteCSV writes the win rates as CSV: one column per network, one row per arena.
// Networks that never played an arena have an empty win rate.
func (s *Statistics) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Creation); err != nil {
		return err
	}
	var records [][]string
	for i, agent := range s.Creation {
		for j, win := range s.Wins[agent] {
			record := make([]string, len(s.Creation))
			if games := win + s.Losses[agent][j] + s.Draws[agent][j]; games > 0 {
				record[i] = strconv.FormatFloat(float64(win/games), 'f', 3, 32)
			}
			records = append(records, record)
		}
	}
	return cw.WriteAll(records)
}

// Dump writes the statistics into filename.
func (s *Statistics) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	if err = s.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return errors.WithStack(f.Close())
}
