package transport

import (
	"context"
	"log/slog"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// wireMessage is the JSON shape read off the wire: a change message has
// Control empty, a control message has Key/Value/Operation/Offset zero.
type wireMessage struct {
	Key       string         `json:"key,omitempty"`
	Value     map[string]any `json:"value,omitempty"`
	Operation Operation      `json:"operation,omitempty"`
	Offset    uint64         `json:"offset,omitempty"`
	Control   string         `json:"control,omitempty"`
}

// WebSocketEngine is an Engine backed by websocket connections
// (github.com/coder/websocket). Each Subscribe call opens its own
// connection, read in a background goroutine and delivered to that
// call's handler only; connections are not shared between subscribers.
type WebSocketEngine struct {
	url    string
	logger *slog.Logger
}

// NewWebSocketEngine returns an Engine that dials url on every
// Subscribe call.
func NewWebSocketEngine(url string, logger *slog.Logger) *WebSocketEngine {
	if logger == nil {
		logger = slog.Default()
	}

	return &WebSocketEngine{url: url, logger: logger}
}

// Subscribe dials the configured endpoint and delivers every message it
// receives to handler until the connection closes or the returned
// Unsubscribe is called.
func (e *WebSocketEngine) Subscribe(handler Handler) Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())

	go e.run(ctx, handler)

	return func() { cancel() }
}

func (e *WebSocketEngine) run(ctx context.Context, handler Handler) {
	conn, _, err := websocket.Dial(ctx, e.url, nil)
	if err != nil {
		e.logger.Error("websocket dial failed", slog.String("url", e.url), slog.String("error", err.Error()))
		return
	}

	defer conn.CloseNow()

	for {
		var msg wireMessage

		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if ctx.Err() != nil {
				return
			}

			e.logger.Error("websocket read failed", slog.String("error", err.Error()))

			return
		}

		handler(Message{
			Key:       msg.Key,
			Value:     msg.Value,
			Operation: msg.Operation,
			Offset:    msg.Offset,
			Control:   msg.Control,
		})
	}
}
