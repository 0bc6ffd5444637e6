package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/pkg/errors"
	"github.com/mroshb/word_game/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = time.Minute
	pingPeriod     = pongWait * 9 / 10
	maxInboundSize = 4096
)

// Envelope is every frame exchanged over the room socket.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type roomConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *roomConn) send(kind string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(Envelope{Type: kind, Data: data})
}

func (c *roomConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// RoomSocket streams room snapshots and chat to a member and tracks their
// presence for as long as the socket stays open.
func (h *HandlerManager) RoomSocket(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	roomID := pathRoomID(r)

	room, err := h.Rooms.GetRoom(r.Context(), roomID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !room.IsMember(id.PlayerID) {
		writeError(w, r, errors.New(errors.ErrCodeForbidden, "join the room before subscribing"))
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", "room", roomID, "player", id.PlayerID, "error", err)
		return
	}
	conn := &roomConn{conn: ws}
	log := logger.With("room", roomID, "player", id.PlayerID)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer func() {
		cancel()
		ws.Close()
		if err := h.Rooms.SetPresence(context.Background(), roomID, id.PlayerID, models.PlayerStatusOffline); err != nil && !errors.Is(err, errors.ErrCodeNotFound) {
			log.Warnw("Failed to mark player offline", "error", err)
		}
		log.Debugw("Room socket closed")
	}()

	if err := h.Rooms.SetPresence(ctx, roomID, id.PlayerID, models.PlayerStatusOnline); err != nil {
		log.Warnw("Failed to mark player online", "error", err)
	}

	unsubscribeRoom, err := h.Rooms.SubscribeRoom(ctx, roomID, func(room *models.Room) {
		if err := conn.send("room", room); err != nil {
			cancel()
		}
	})
	if err != nil {
		log.Warnw("Failed to subscribe to room", "error", err)
		return
	}
	defer unsubscribeRoom()

	unsubscribeChat := h.Rooms.SubscribeChat(roomID, func(msg models.ChatMessage) {
		if err := conn.send("chat", msg); err != nil {
			cancel()
		}
	})
	defer unsubscribeChat()

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				ws.Close()
				return
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	h.readLoop(ctx, ws, roomID, id.PlayerID)
}

// readLoop handles client frames until the socket fails. Clients may report
// presence ("online" or "away"); other frame types are ignored.
func (h *HandlerManager) readLoop(ctx context.Context, ws *websocket.Conn, roomID, playerID string) {
	ws.SetReadLimit(maxInboundSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Envelope
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Room socket read failed", "room", roomID, "player", playerID, "error", err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(pongWait))

		if msg.Type != "presence" {
			continue
		}
		var status string
		if err := json.Unmarshal(msg.Data, &status); err != nil || status == models.PlayerStatusOffline {
			continue
		}
		if err := h.Rooms.SetPresence(ctx, roomID, playerID, status); err != nil {
			logger.Debug("Presence update rejected", "room", roomID, "player", playerID, "error", err)
		}
	}
}
