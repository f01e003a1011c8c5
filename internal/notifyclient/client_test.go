package notifyclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendPostsNotification(t *testing.T) {
	var got Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notify" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	n := Notification{Recipient: "s1", EventID: "ev1", Kind: "attendance_marked", Message: "You are checked in"}
	if err := c.Send(context.Background(), n); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got != n {
		t.Errorf("server saw %+v, want %+v", got, n)
	}
}

func TestSendSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	if err := c.Send(context.Background(), Notification{Recipient: "s1"}); err == nil {
		t.Error("expected error for 502 response")
	}
}

func TestSkipShortCircuits(t *testing.T) {
	c := New("http://localhost:1", true)
	if err := c.Send(context.Background(), Notification{Recipient: "s1"}); err != nil {
		t.Errorf("skip mode should not touch the network: %v", err)
	}
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("skip mode health should pass: %v", err)
	}
}
