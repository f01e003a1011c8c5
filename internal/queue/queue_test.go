package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	body, _ := json.Marshal(map[string]string{"event_id": "ev1", "student_id": "s1"})
	if err := q.Publish(ctx, Message{Type: "attendance_marked", Body: body}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	select {
	case msg := <-msgs:
		if msg.Type != "attendance_marked" {
			t.Errorf("type = %q, want attendance_marked", msg.Type)
		}
		var decoded map[string]string
		if err := json.Unmarshal(msg.Body, &decoded); err != nil {
			t.Fatalf("body not JSON: %v", err)
		}
		if decoded["student_id"] != "s1" {
			t.Errorf("body = %v", decoded)
		}
	case <-time.After(time.Second):
		t.Fatal("message never delivered")
	}
}

func TestInMemoryPublishHonoursCancel(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Publish(ctx, Message{Type: "attendance_marked"}); err == nil {
		t.Error("publish to full queue with cancelled context should fail")
	}
}
