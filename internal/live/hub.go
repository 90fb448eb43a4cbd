// Package live pushes new submissions to dashboard websocket clients.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/parisxmas/formdesk/internal/events"
	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/resolver"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	// bufferSize is how many messages a subscriber may fall behind before
	// messages to it are dropped.
	bufferSize = 16
)

// Message is what a subscriber receives for each new submission.
type Message struct {
	Event      string            `json:"event"`
	Submission models.Submission `json:"submission"`
	Rows       []resolver.Row    `json:"rows"`
}

type subscriber struct {
	ch chan []byte
}

// Hub fans submission events out to subscribers of each form.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	closed bool
	subs   map[string]map[*subscriber]struct{}
}

// NewHub builds a hub. allowedOrigin "*" or "" accepts any Origin header.
func NewHub(log zerolog.Logger, allowedOrigin string) *Hub {
	h := &Hub{
		log:  log.With().Str("component", "live").Logger(),
		subs: make(map[string]map[*subscriber]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" || allowedOrigin == "*" {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || origin == allowedOrigin
		},
	}
	return h
}

// Subscribe registers for messages about formID. The returned cancel
// function unregisters and closes the channel; it is safe to call twice.
func (h *Hub) Subscribe(formID string) (<-chan []byte, func()) {
	s := &subscriber{ch: make(chan []byte, bufferSize)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(s.ch)
		return s.ch, func() {}
	}
	set := h.subs[formID]
	if set == nil {
		set = make(map[*subscriber]struct{})
		h.subs[formID] = set
	}
	set[s] = struct{}{}

	return s.ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[formID][s]; !ok {
			return
		}
		delete(h.subs[formID], s)
		if len(h.subs[formID]) == 0 {
			delete(h.subs, formID)
		}
		close(s.ch)
	}
}

// Subscribers counts the current subscribers of formID.
func (h *Hub) Subscribers(formID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[formID])
}

// Publish implements events.Publisher.
func (h *Hub) Publish(_ context.Context, evt events.SubmissionEvent) {
	msg, err := json.Marshal(Message{Event: evt.Type, Submission: evt.Submission, Rows: evt.Rows})
	if err != nil {
		h.log.Error().Err(err).Msg("marshal live message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[evt.Form.ID] {
		select {
		case s.ch <- msg:
		default:
			h.log.Warn().Str("form", evt.Form.ID).Msg("live subscriber too slow, message dropped")
		}
	}
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for formID, set := range h.subs {
		for s := range set {
			close(s.ch)
		}
		delete(h.subs, formID)
	}
}

// Serve upgrades the request and streams messages about formID until the
// client goes away or the hub closes. Authorization is the caller's job.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, formID string) {
	// Subscribe first so nothing published after the handshake is missed.
	ch, cancel := h.Subscribe(formID)
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// The read loop only handles control frames; clients send nothing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case msg, ok := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
