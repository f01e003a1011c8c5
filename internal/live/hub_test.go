package live

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBroadcastReachesSubscriber(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Subscribe(w, r, "ev1"); err != nil {
			t.Errorf("subscribe failed: %v", err)
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// Wait for the subscription to register before broadcasting.
	deadline := time.Now().Add(time.Second)
	for hub.SubscriberCount("ev1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Broadcast("ev1", "attendance_marked", map[string]string{"student_id": "s1"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var evt Event
	if err := json.Unmarshal(msg, &evt); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if evt.Type != "attendance_marked" || evt.EventID != "ev1" {
		t.Errorf("envelope = %+v", evt)
	}
}

func TestBroadcastToOtherEventIsNotDelivered(t *testing.T) {
	hub := NewHub()
	// No subscribers at all; must not panic or block.
	hub.Broadcast("ev9", "attendance_marked", map[string]string{"student_id": "s1"})
	if n := hub.SubscriberCount("ev9"); n != 0 {
		t.Errorf("subscriber count = %d, want 0", n)
	}
}
