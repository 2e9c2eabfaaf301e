package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/linskybing/zeera/internal/api/middleware"
	"github.com/linskybing/zeera/internal/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum number of events buffered before a batch is forced out.
	batchSize = 50

	// Maximum time an event waits in the buffer.
	flushFrequency = 100 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || middleware.AllowedOrigin(origin)
	},
}

type ActivityHandler struct {
	hub *events.Hub
}

func NewActivityHandler(hub *events.Hub) *ActivityHandler {
	return &ActivityHandler{hub: hub}
}

// Stream godoc
// @Summary Live activity feed of a project
// @Description Upgrades to a WebSocket. Each message is a JSON array of issue events.
// @Tags activity
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 101 {string} string "Switching Protocols"
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /ws/projects/{id}/activity [get]
func (h *ActivityHandler) Stream(c *gin.Context) {
	projectID, ok := idParam(c, "id")
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		slog.Warn("websocket upgrade failed", "project_id", projectID, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub := h.hub.Subscribe(projectID)
	defer h.hub.Unsubscribe(sub)

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go h.writeLoop(ctx, cancel, conn, sub)

	// Clients only send control frames; reading drives the pong handler and
	// notices disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("activity websocket closed", "project_id", projectID, "error", err)
			}
			return
		}
	}
}

func (h *ActivityHandler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sub *events.Subscriber) {
	defer func() { _ = conn.Close() }()
	defer cancel()

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()
	flushTicker := time.NewTicker(flushFrequency)
	defer flushTicker.Stop()

	var buffer []json.RawMessage
	flush := func() error {
		if len(buffer) == 0 {
			return nil
		}
		batch, err := json.Marshal(buffer)
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, batch); err != nil {
			return err
		}
		buffer = buffer[:0]
		return nil
	}

	for {
		select {
		case msg, ok := <-sub.C:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			buffer = append(buffer, json.RawMessage(msg))
			if len(buffer) >= batchSize {
				if err := flush(); err != nil {
					return
				}
			}

		case <-flushTicker.C:
			if err := flush(); err != nil {
				return
			}

		case <-pingTicker.C:
			if err := flush(); err != nil {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
