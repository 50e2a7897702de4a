package feishu

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
)

const (
	wsReadLimit    = 1 << 20 // 1MB
	wsPingInterval = 30 * time.Second
	wsMaxBackoff   = 60 * time.Second
)

// WSEventHandler receives raw event payloads from the long connection.
type WSEventHandler interface {
	HandleEvent(ctx context.Context, payload []byte) error
}

// WSClient maintains the Feishu long connection: endpoint negotiation,
// keepalive pings, and reconnection with exponential backoff.
type WSClient struct {
	client  *LarkClient
	handler WSEventHandler
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWSClient creates a long-connection client over the Lark API client.
func NewWSClient(client *LarkClient, handler WSEventHandler) *WSClient {
	return &WSClient{client: client, handler: handler}
}

// Start runs the connection loop until ctx is cancelled or Stop is called.
func (w *WSClient) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.run(runCtx)
	return nil
}

// Stop shuts the connection loop down and waits for it to exit.
func (w *WSClient) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.done != nil {
		<-w.done
	}
}

func (w *WSClient) run(ctx context.Context) {
	defer close(w.done)
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connectAndServe(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("feishu ws connection lost, reconnecting", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, wsMaxBackoff)
			continue
		}
		backoff = time.Second
	}
}

// connectAndServe negotiates the endpoint, dials, and reads frames until
// the connection drops.
func (w *WSClient) connectAndServe(ctx context.Context) error {
	wsURL, err := w.client.GetWSEndpoint(ctx)
	if err != nil {
		return err
	}

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(wsReadLimit)
	defer conn.Close(websocket.StatusNormalClosure, "shutdown")

	slog.Info("feishu ws connected")

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				if err := conn.Ping(pingCtx); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		w.dispatchFrame(ctx, data)
	}
}

// dispatchFrame unwraps one long-connection frame and forwards event
// payloads to the handler.
func (w *WSClient) dispatchFrame(ctx context.Context, data []byte) {
	var frame struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		slog.Debug("feishu ws: unparseable frame", "error", err)
		return
	}
	if frame.Type != "event" || len(frame.Payload) == 0 {
		return
	}
	if err := w.handler.HandleEvent(ctx, frame.Payload); err != nil {
		slog.Warn("feishu ws: event handler failed", "error", err)
	}
}
