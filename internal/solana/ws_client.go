package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for the subscription confirmation.
	SubscribeTimeout time.Duration
	// Buffer is the notification channel capacity.
	Buffer int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		Buffer:            10000,
	}
}

// LogStream maintains a single logsSubscribe subscription, reconnecting and
// resubscribing with exponential backoff when the connection drops.
type LogStream struct {
	endpoint string
	filter   LogsFilter
	config   WSClientConfig
	log      logrus.FieldLogger

	connMu sync.Mutex
	conn   *websocket.Conn
}

// NewLogStream creates a log stream. Nothing is dialed until Subscribe.
func NewLogStream(endpoint string, filter LogsFilter, config WSClientConfig, log logrus.FieldLogger) *LogStream {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &LogStream{
		endpoint: endpoint,
		filter:   filter,
		config:   config,
		log:      log,
	}
}

// Subscribe dials the endpoint and streams notifications until ctx is done.
// The first connection is established synchronously so configuration errors
// surface to the caller; later failures are retried in the background.
// The returned channel is closed when the stream stops.
func (s *LogStream) Subscribe(ctx context.Context) (<-chan LogNotification, error) {
	conn, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan LogNotification, s.config.Buffer)
	go s.run(ctx, conn, out)
	return out, nil
}

func (s *LogStream) run(ctx context.Context, conn *websocket.Conn, out chan<- LogNotification) {
	defer close(out)

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.closeConn()
		case <-stop:
		}
	}()
	defer close(stop)

	delay := s.config.ReconnectDelay
	for {
		pingDone := make(chan struct{})
		go s.pingLoop(conn, pingDone)

		err := s.readLoop(ctx, conn, out)
		close(pingDone)
		s.closeConn()

		if ctx.Err() != nil {
			return
		}
		s.log.WithError(err).Warn("log stream disconnected")

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			conn, err = s.open(ctx)
			if err == nil {
				delay = s.config.ReconnectDelay
				s.log.Info("log stream resubscribed")
				break
			}
			s.log.WithError(err).WithField("retry_in", delay).Warn("log stream reconnect failed")

			delay *= 2
			if delay > s.config.MaxReconnectDelay {
				delay = s.config.MaxReconnectDelay
			}
		}
	}
}

// open dials and subscribes, returning a connection whose subscription is confirmed.
func (s *LogStream) open(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	mentionsFilter := make(map[string]interface{})
	if len(s.filter.Mentions) > 0 {
		mentionsFilter["mentions"] = s.filter.Mentions
	} else {
		mentionsFilter["all"] = nil
	}
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "logsSubscribe",
		Params: []interface{}{
			mentionsFilter,
			map[string]string{"commitment": "confirmed"},
		},
	}

	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(s.config.SubscribeTimeout))
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("await subscription: %w", err)
		}
		var resp wsSubscribeResponse
		if err := json.Unmarshal(message, &resp); err != nil {
			continue
		}
		if resp.Error != nil {
			conn.Close()
			return nil, fmt.Errorf("subscribe rejected: code=%d msg=%s", resp.Error.Code, resp.Error.Message)
		}
		if resp.ID == req.ID && resp.Result > 0 {
			break
		}
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	return conn, nil
}

func (s *LogStream) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- LogNotification) error {
	for {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		notif, ok := parseLogsNotification(message)
		if !ok {
			continue
		}

		// Block until the consumer catches up; never drop events.
		select {
		case out <- notif:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *LogStream) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			s.connMu.Unlock()
			if err != nil {
				// reader notices the broken connection
				return
			}
		}
	}
}

func (s *LogStream) closeConn() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
		s.conn = nil
	}
}

func parseLogsNotification(message []byte) (LogNotification, bool) {
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err != nil || notif.Method != "logsNotification" || notif.Params == nil {
		return LogNotification{}, false
	}

	value := notif.Params.Result.Value
	out := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		out.Slot = notif.Params.Result.Context.Slot
	}
	return out, true
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      uint64    `json:"id"`
	Result  int64     `json:"result"` // subscription ID
	Error   *RPCError `json:"error"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
