package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/satindergrewal/singalong/internal/highlight"
)

const writeTimeout = 5 * time.Second

// Snapshot returns the events that redraw the current lyric state for a
// client that has just connected.
type Snapshot func() []highlight.Event

// EventsHandler pushes highlight events to WebSocket clients as JSON arrays,
// one message per tick that changed something.
type EventsHandler struct {
	events   *Broadcaster[[]highlight.Event]
	snapshot Snapshot
}

// NewEventsHandler creates a WebSocket events handler. snapshot may be nil.
func NewEventsHandler(events *Broadcaster[[]highlight.Event], snapshot Snapshot) *EventsHandler {
	return &EventsHandler{events: events, snapshot: snapshot}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		log.Printf("Events: accept error: %v", err)
		return
	}
	defer conn.CloseNow()

	id := uuid.NewString()
	ctx := conn.CloseRead(r.Context())

	listener := h.events.Subscribe()
	defer h.events.Unsubscribe(listener)

	log.Printf("Lyrics client %s connected (total: %d)", id, h.events.ListenerCount())
	defer log.Printf("Lyrics client %s disconnected", id)

	if h.snapshot != nil {
		if err := writeEvents(ctx, conn, h.snapshot()); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-listener.Done():
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case batch, ok := <-listener.C:
			if !ok {
				return
			}
			if err := writeEvents(ctx, conn, batch); err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Printf("Lyrics client %s: write error: %v", id, err)
				}
				return
			}
		}
	}
}

func writeEvents(ctx context.Context, conn *websocket.Conn, events []highlight.Event) error {
	if len(events) == 0 {
		return nil
	}
	b, err := json.Marshal(events)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, b)
}
