package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/azplay/azplay"
	"github.com/azplay/azplay/game"
	tea "github.com/charmbracelet/bubbletea"
)

// GameUpdate is sent to the dashboard after every self-play game.
type GameUpdate struct {
	Generation int
	Game       int
	Winner     game.Player
	Moves      int
	Examples   int
}

// LearnDone is sent to the dashboard when learning stops.
type LearnDone struct {
	Err error
}

type dashboard struct {
	name        string
	generations int
	generation  int
	gamesPlayed int
	examples    int
	wins        map[game.Player]int
	startTime   time.Time
	recentGames []string
	updates     chan tea.Msg
	done        bool
	err         error
}

func newDashboard(name string, generations int, updates chan tea.Msg) dashboard {
	return dashboard{
		name:        name,
		generations: generations,
		wins:        make(map[game.Player]int),
		startTime:   time.Now(),
		updates:     updates,
	}
}

// observer feeds a dashboard. Updates are dropped when the dashboard is behind.
func observer(updates chan<- tea.Msg, generation func() int) azplay.Observer {
	return func(gameNumber int, final *game.State, examples []azplay.Example) {
		_, winner := final.Ended()
		select {
		case updates <- GameUpdate{
			Generation: generation(),
			Game:       gameNumber,
			Winner:     winner,
			Moves:      final.MoveNumber(),
			Examples:   len(examples),
		}:
		default:
		}
	}
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*250, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForUpdate(updates chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m dashboard) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func (m dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()
	case GameUpdate:
		m.gamesPlayed++
		m.examples += msg.Examples
		m.generation = msg.Generation
		m.wins[msg.Winner]++
		line := fmt.Sprintf("Generation %d game %d: %d moves, %d examples, ", msg.Generation, msg.Game, msg.Moves, msg.Examples)
		if msg.Winner == game.Nobody {
			line += "draw"
		} else {
			line += fmt.Sprintf("%s wins", msg.Winner)
		}
		m.recentGames = append([]string{line}, m.recentGames...)
		if len(m.recentGames) > 10 {
			m.recentGames = m.recentGames[:10]
		}
		return m, waitForUpdate(m.updates)
	case LearnDone:
		m.done = true
		m.err = msg.Err
		return m, nil
	}
	return m, nil
}

func (m dashboard) View() string {
	var b strings.Builder
	duration := time.Since(m.startTime)
	gamesPerSec := 0.0
	if duration.Seconds() >= 1 {
		gamesPerSec = float64(m.gamesPlayed) / duration.Seconds()
	}

	fmt.Fprintf(&b, "Learning %s\n\n", m.name)
	fmt.Fprintf(&b, "Generation:     %d/%d\n", minInt(m.generation+1, m.generations), m.generations)
	fmt.Fprintf(&b, "Games Played:   %d\n", m.gamesPlayed)
	fmt.Fprintf(&b, "Examples:       %d\n", m.examples)
	fmt.Fprintf(&b, "X/O/Draws:      %d/%d/%d\n", m.wins[game.X], m.wins[game.O], m.wins[game.Nobody])
	fmt.Fprintf(&b, "Duration:       %s\n", duration.Round(time.Second))
	fmt.Fprintf(&b, "Games/Sec:      %.2f\n\n", gamesPerSec)

	b.WriteString("Recent Games:\n")
	for _, g := range m.recentGames {
		b.WriteString(g)
		b.WriteByte('\n')
	}

	switch {
	case m.err != nil:
		fmt.Fprintf(&b, "\nFailed: %v\n", m.err)
	case m.done:
		b.WriteString("\nDone.\n")
	}
	b.WriteString("\nPress q to quit.\n")
	return b.String()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
