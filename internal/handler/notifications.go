package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/foodrescue/foodrescue/internal/apierror"
	"github.com/foodrescue/foodrescue/internal/ctxkeys"
	"github.com/foodrescue/foodrescue/internal/relay"
	"github.com/gorilla/websocket"
)

const (
	// pingInterval must stay below pongWait so a healthy client always answers in time
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

type notificationsHandler struct {
	relay    relay.Relay
	upgrader websocket.Upgrader
}

// NewNotificationsHandler streams relay events to restaurants over WebSocket.
// Only same-origin upgrades are accepted: the session cookie would otherwise
// let any site open a stream on the user's behalf.
func NewNotificationsHandler(r relay.Relay, appURL string) *notificationsHandler {
	allowedHost := ""
	u, err := url.Parse(appURL)
	if err == nil {
		allowedHost = u.Host
	}

	return &notificationsHandler{
		relay: r,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true // non-browser clients
				}
				o, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return o.Host == r.Host || (allowedHost != "" && o.Host == allowedHost)
			},
		},
	}
}

// Stream subscribes the calling restaurant to its channel and forwards every event.
func (h *notificationsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	// Subscription outlives the request context once the connection is hijacked
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	sub, err := h.relay.Subscribe(ctx, relay.ChannelName(user.ID))
	if err != nil {
		slog.Error("failed to subscribe to notifications", "error", err, "user_id", user.ID)
		apierror.ServiceUnavailable(w, "notifications are unavailable")
		return
	}
	defer func() { _ = sub.Close() }()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		slog.Warn("websocket upgrade failed", "error", err, "user_id", user.ID)
		return
	}
	defer func() { _ = conn.Close() }()

	slog.Info("notification stream opened", "user_id", user.ID)
	go h.readPump(conn, cancel)
	h.writePump(ctx, conn, sub)
	slog.Info("notification stream closed", "user_id", user.ID)
}

// readPump discards client messages and cancels the stream when the peer goes away.
func (h *notificationsHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			return
		}
	}
}

func (h *notificationsHandler) writePump(ctx context.Context, conn *websocket.Conn, sub *relay.Subscription) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteJSON(msg)
			if err != nil {
				slog.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		case <-sub.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay closed"),
				time.Now().Add(writeWait))
			return
		case <-ctx.Done():
			return
		}
	}
}
