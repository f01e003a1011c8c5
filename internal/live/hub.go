package live

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is the envelope pushed to subscribed dashboards.
type Event struct {
	Type    string          `json:"type"`
	EventID string          `json:"event_id"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans accepted check-ins out to faculty dashboards subscribed per
// event. Slow consumers are dropped rather than blocking the scan path.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{} // eventID -> connections
}

type subscriber struct {
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser dashboards connect cross-origin; auth happens via the JWT
	// checked before the upgrade.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Subscribe upgrades the request and streams the event's feed until the
// client disconnects.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, eventID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	sub := &subscriber{send: make(chan []byte, 16)}
	h.add(eventID, sub)

	go func() {
		defer func() {
			h.remove(eventID, sub)
			conn.Close()
		}()
		for msg := range sub.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	// Reader loop only to observe close frames.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(eventID, sub)
				return
			}
		}
	}()
	return nil
}

// Broadcast pushes one event to every subscriber of eventID.
func (h *Hub) Broadcast(eventID, kind string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("live broadcast marshal failed: %v", err)
		return
	}
	msg, err := json.Marshal(Event{Type: kind, EventID: eventID, Payload: body})
	if err != nil {
		log.Printf("live broadcast marshal failed: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[eventID] {
		select {
		case sub.send <- msg:
		default:
			// Subscriber can't keep up; it will be dropped on next write.
		}
	}
}

// SubscriberCount reports how many dashboards watch an event.
func (h *Hub) SubscriberCount(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[eventID])
}

func (h *Hub) add(eventID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[eventID] == nil {
		h.subs[eventID] = make(map[*subscriber]struct{})
	}
	h.subs[eventID][sub] = struct{}{}
}

func (h *Hub) remove(eventID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[eventID]; ok {
		if _, present := set[sub]; present {
			delete(set, sub)
			close(sub.send)
			if len(set) == 0 {
				delete(h.subs, eventID)
			}
		}
	}
}
