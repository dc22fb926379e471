package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"apctl/internal/view"
)

// eventState carries the whole view; it is the first frame a viewer gets.
const eventState = "state"

// ViewHub fans view events out to WebSocket viewers.
type ViewHub struct {
	viewers map[*viewer]struct{}
	mu      sync.RWMutex
	logger  *slog.Logger

	register   chan *viewer
	unregister chan *viewer
	events     chan view.Event

	done     chan struct{}
	stopOnce sync.Once
}

type viewer struct {
	conn *websocket.Conn
	send chan []byte
}

// NewViewHub creates a hub with no viewers.
func NewViewHub(logger *slog.Logger) *ViewHub {
	return &ViewHub{
		viewers:    make(map[*viewer]struct{}),
		logger:     logger,
		register:   make(chan *viewer),
		unregister: make(chan *viewer),
		events:     make(chan view.Event, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub event loop.
func (h *ViewHub) Run() {
	for {
		select {
		case <-h.done:
			// Close all remaining viewers on shutdown
			h.mu.Lock()
			for v := range h.viewers {
				close(v.send)
				delete(h.viewers, v)
			}
			h.mu.Unlock()
			return

		case v := <-h.register:
			h.mu.Lock()
			h.viewers[v] = struct{}{}
			total := len(h.viewers)
			h.mu.Unlock()
			h.logger.Debug("viewer connected", "total", total)

		case v := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.viewers[v]; ok {
				delete(h.viewers, v)
				close(v.send)
			}
			total := len(h.viewers)
			h.mu.Unlock()
			h.logger.Debug("viewer disconnected", "total", total)

		case ev := <-h.events:
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("view event marshal", "type", ev.Type, "err", err)
				continue
			}
			h.mu.Lock()
			var slow []*viewer
			for v := range h.viewers {
				select {
				case v.send <- data:
				default:
					// Viewer too slow, mark for eviction
					slow = append(slow, v)
				}
			}
			for _, v := range slow {
				delete(h.viewers, v)
				close(v.send)
				h.logger.Warn("viewer evicted (too slow)", "type", ev.Type, "seq", ev.Seq)
			}
			h.mu.Unlock()
		}
	}
}

// Stop signals the hub to shut down. Safe to call multiple times.
func (h *ViewHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// Broadcast queues ev for every viewer. It never blocks; when the queue is
// full the event is dropped and viewers see a gap in Seq.
func (h *ViewHub) Broadcast(ev view.Event) {
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("view event queue full, dropping event", "type", ev.Type, "seq", ev.Seq)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(s.allowedOrigins) > 0 {
		opts.OriginPatterns = s.allowedOrigins
	}
	// If no allowedOrigins configured, nhooyr defaults to same-origin check.

	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.logger.Error("ws accept", "err", err)
		return
	}
	conn.SetReadLimit(4096)

	v := &viewer{
		conn: conn,
		send: make(chan []byte, 64),
	}

	// New viewers get the full view first, then incremental events.
	if data, err := json.Marshal(view.Event{Type: eventState, Data: s.panel.View().State()}); err == nil {
		v.send <- data
	}

	select {
	case s.viewHub.register <- v:
	case <-s.viewHub.done:
		conn.Close(websocket.StatusGoingAway, "server shutdown")
		return
	}

	go s.wsWritePump(v)
	s.wsReadPump(v)
}

func (s *Server) wsWritePump(v *viewer) {
	for msg := range v.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := v.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			return
		}
	}
	// Channel closed by hub; close connection.
	v.conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) wsReadPump(v *viewer) {
	defer func() {
		select {
		case s.viewHub.unregister <- v:
		case <-s.viewHub.done:
			// Hub already shut down; close connection directly.
			v.conn.Close(websocket.StatusGoingAway, "server shutdown")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel read context when hub shuts down.
	go func() {
		select {
		case <-s.viewHub.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		if _, _, err := v.conn.Read(ctx); err != nil {
			return
		}
		// Viewers only listen; incoming frames are discarded.
	}
}
