package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xelth-com/berrycheck/internal/logger"
)

func TestBroadcastReachesListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(logger.Nop())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, 1, w, r)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("listener never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast("SYNC_COMPLETED", map[string]int{"nuevas": 2})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev struct {
		Type    string         `json:"type"`
		Payload map[string]int `json:"payload"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != "SYNC_COMPLETED" || ev.Payload["nuevas"] != 2 {
		t.Errorf("event = %+v", ev)
	}
}

func TestBroadcastWithoutListenersDoesNotBlock(t *testing.T) {
	hub := NewHub(logger.Nop())
	for i := 0; i < 200; i++ {
		hub.Broadcast("PDF_GENERATED", i)
	}
}

func TestClientAfterHubStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger.Nop())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := &Client{hub: hub, send: make(chan []byte, 1), ID: "web_test"}
	if !hub.join(client) {
		t.Fatal("join refused while hub running")
	}
	cancel()
	<-stopped

	// a late PONG must not panic on the closed channel
	client.sendJSON(map[string]string{"type": "PONG"})

	left := make(chan struct{})
	go func() {
		hub.leave(client)
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(2 * time.Second):
		t.Fatal("leave blocked after hub stopped")
	}

	if hub.join(&Client{hub: hub, send: make(chan []byte, 1), ID: "web_late"}) {
		t.Error("join accepted after hub stopped")
	}
	if hub.Count() != 0 {
		t.Errorf("count = %d", hub.Count())
	}
}
