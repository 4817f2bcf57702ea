package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/azplay/azplay/game"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// move is what is sent to the websocket clients after every move.
type move struct {
	Game       string `json:"game"`
	Generation int    `json:"generation"`
	Number     int    `json:"number"`
	Player     string `json:"player"`
	Action     int32  `json:"action"`
	Board      string `json:"board"`
	Ended      bool   `json:"ended"`
	Winner     string `json:"winner,omitempty"`
}

// Stream is an OutputEncoder which sends the moves to websocket clients.
// Clients that cannot keep up miss moves.
type Stream struct {
	sync.Mutex
	clients map[chan []byte]struct{}
}

var upgrader = websocket.Upgrader{} // use default options

// NewStream creates a Stream without clients.
func NewStream() *Stream {
	return &Stream{clients: make(map[chan []byte]struct{})}
}

// Mux serves the stream on /ws.
func (enc *Stream) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", enc)
	return mux
}

func (enc *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("upgrade")
		return
	}
	defer c.Close()

	ch := make(chan []byte, 64)
	enc.Lock()
	enc.clients[ch] = struct{}{}
	enc.Unlock()
	defer func() {
		enc.Lock()
		delete(enc.clients, ch)
		enc.Unlock()
	}()

	for {
		select {
		case b := <-ch:
			if err = c.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Debug().Err(err).Msg("write")
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// Encode a game
func (enc *Stream) Encode(ms game.MetaState) error {
	s := ms.State()
	ended, winner := s.Ended()
	m := move{
		Game:       ms.Name(),
		Generation: ms.Epoch(),
		Number:     ms.GameNumber(),
		Player:     s.LastMover().String(),
		Action:     int32(s.LastAction()),
		Board:      fmt.Sprintf("%s", s),
		Ended:      ended,
	}
	if ended && winner != game.Nobody {
		m.Winner = winner.String()
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}

	enc.Lock()
	defer enc.Unlock()
	for ch := range enc.clients {
		select {
		case ch <- b:
		default:
		}
	}
	return nil
}

// Flush does nothing, moves are sent as they are played.
func (enc *Stream) Flush() error { return nil }
