package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// logsServer accepts a subscription, confirms it, then sends one notification per signature.
func logsServer(t *testing.T, connections *atomic.Int32, signatures ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()
		n := connections.Add(1)

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "logsSubscribe" {
			t.Errorf("expected logsSubscribe, got %s", req.Method)
		}

		if err := c.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: 12345}); err != nil {
			return
		}

		for _, sig := range signatures {
			notif := wsNotification{
				JSONRPC: "2.0",
				Method:  "logsNotification",
				Params: &wsNotificationParams{
					Subscription: 12345,
					Result: wsNotificationResult{
						Context: &wsContext{Slot: 100 + int64(n)},
						Value: wsLogsValue{
							Signature: sig,
							Logs:      []string{"Program log: Instruction: Sell"},
						},
					},
				},
			}
			if err := c.WriteJSON(notif); err != nil {
				return
			}
		}

		// First connection drops to exercise reconnect; later ones stay open.
		if n == 1 {
			return
		}
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func testWSConfig() WSClientConfig {
	cfg := DefaultWSConfig()
	cfg.ReconnectDelay = 10 * time.Millisecond
	cfg.MaxReconnectDelay = 50 * time.Millisecond
	cfg.SubscribeTimeout = 2 * time.Second
	cfg.Buffer = 16
	return cfg
}

func TestLogStream_SubscribeReceivesNotification(t *testing.T) {
	var connections atomic.Int32
	server := logsServer(t, &connections, "sig-1")
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	stream := NewLogStream(wsURL, LogsFilter{Mentions: []string{"prog"}}, testWSConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := stream.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case notif := <-ch:
		if notif.Signature != "sig-1" {
			t.Errorf("expected signature sig-1, got %s", notif.Signature)
		}
		if notif.Slot != 101 {
			t.Errorf("expected slot 101, got %d", notif.Slot)
		}
		if len(notif.Logs) != 1 {
			t.Errorf("expected 1 log line, got %d", len(notif.Logs))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestLogStream_ReconnectsAfterDrop(t *testing.T) {
	var connections atomic.Int32
	server := logsServer(t, &connections, "sig-a")
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	stream := NewLogStream(wsURL, LogsFilter{}, testWSConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := stream.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	var slots []int64
	deadline := time.After(3 * time.Second)
	for len(slots) < 2 {
		select {
		case notif := <-ch:
			slots = append(slots, notif.Slot)
		case <-deadline:
			t.Fatalf("timed out, got slots %v", slots)
		}
	}

	if slots[0] != 101 || slots[1] != 102 {
		t.Errorf("expected notifications from two connections, got slots %v", slots)
	}
	if connections.Load() < 2 {
		t.Errorf("expected reconnect, got %d connections", connections.Load())
	}
}

func TestLogStream_ClosesChannelOnCancel(t *testing.T) {
	var connections atomic.Int32
	server := logsServer(t, &connections)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	cfg := testWSConfig()
	cfg.ReconnectDelay = time.Hour
	stream := NewLogStream(wsURL, LogsFilter{}, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := stream.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestLogStream_SubscribeDialError(t *testing.T) {
	stream := NewLogStream("ws://127.0.0.1:1", LogsFilter{}, testWSConfig(), nil)
	if _, err := stream.Subscribe(context.Background()); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestParseLogsNotification_IgnoresOtherMessages(t *testing.T) {
	if _, ok := parseLogsNotification([]byte(`{"jsonrpc":"2.0","id":1,"result":5}`)); ok {
		t.Error("subscription response must not parse as notification")
	}
	if _, ok := parseLogsNotification([]byte(`not json`)); ok {
		t.Error("garbage must not parse as notification")
	}
}
