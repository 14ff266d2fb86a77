package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ternarybob/abacus/internal/logger"
	"github.com/ternarybob/abacus/pkg/session"
)

const (
	keypadWriteWait = 10 * time.Second
	keypadPongWait  = 60 * time.Second
	keypadPingEvery = keypadPongWait * 9 / 10
	keypadMaxFrame  = 4 << 10
)

// KeypadFrame is a client message on the keypad socket. Exactly one of
// the fields is expected; Key is the common case of a single press.
type KeypadFrame struct {
	Key      string   `json:"key,omitempty"`
	Keys     []string `json:"keys,omitempty"`
	Sequence string   `json:"sequence,omitempty"`
}

// KeypadEvent is a server message on the keypad socket.
type KeypadEvent struct {
	Type     string            `json:"type"` // "snapshot" or "error"
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// handleKeypad upgrades to a WebSocket and applies each received frame to
// the session, replying with the resulting snapshot.
func (s *Server) handleKeypad(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logger.ForSession(sess.ID()).Warn().Err(err).Msg("Keypad upgrade failed")
		return
	}
	defer conn.Close()

	log := logger.ForSession(sess.ID())
	log.Debug().Msg("Keypad connected")

	conn.SetReadLimit(keypadMaxFrame)
	conn.SetReadDeadline(time.Now().Add(keypadPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(keypadPongWait))
	})

	// gorilla allows one concurrent writer, so frames are handed to a
	// single writer goroutine.
	out := make(chan KeypadEvent, 8)
	done := make(chan struct{})
	go keypadWriter(conn, out, done)
	defer func() {
		close(out)
		<-done
	}()

	initial := sess.Snapshot()
	out <- KeypadEvent{Type: "snapshot", Snapshot: &initial}

	for {
		var frame KeypadFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Keypad closed unexpectedly")
			}
			return
		}

		req := KeysRequest{Keys: frame.Keys, Sequence: frame.Sequence}
		if frame.Key != "" {
			req.Keys = append([]string{frame.Key}, req.Keys...)
		}

		snap, err := press(sess, req)
		if err != nil {
			out <- KeypadEvent{Type: "error", Error: err.Error()}
			continue
		}
		out <- KeypadEvent{Type: "snapshot", Snapshot: &snap}
	}
}

func keypadWriter(conn *websocket.Conn, out <-chan KeypadEvent, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(keypadPingEvery)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-out:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(keypadWriteWait))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(keypadWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				// Closing unblocks the reader; draining keeps it from blocking on out.
				conn.Close()
				for range out {
				}
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(keypadWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				for range out {
				}
				return
			}
		}
	}
}
