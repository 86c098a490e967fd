package chat

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/umar/campus-chat/internal/auth"
	"github.com/umar/campus-chat/internal/models"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = 54 * time.Second
	sendQueueSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one websocket session on one room.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	id      string
	name    string
	email   string
	roomID  string
	userID  int64
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
}

func (c *Client) ID() string   { return c.id }
func (c *Client) Name() string { return c.name }

// Deliver queues payload for the write pump without blocking. A client whose
// queue is full is disconnected; it can recover from history on reconnect.
func (c *Client) Deliver(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		c.close()
		return ErrSendQueueFull
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// ServeWS upgrades GET /ws/{room_id}/{client_name}?token=... into a room
// session. Messages are stored under the token's email; client_name is only
// the display name shown to the room and in presence.
func ServeWS(hub *Hub, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		roomID, name := vars["room_id"], vars["client_name"]

		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		claims, err := auth.ValidateToken(token, jwtSecret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if _, err := models.ParseRoomID(roomID); err != nil {
			http.Error(w, "invalid room id", http.StatusBadRequest)
			return
		}
		if name == "" {
			http.Error(w, "missing client name", http.StatusBadRequest)
			return
		}
		if hub.closed() {
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}

		client := &Client{
			hub:     hub,
			conn:    conn,
			id:      uuid.NewString(),
			name:    name,
			email:   claims.Email,
			roomID:  roomID,
			userID:  claims.UserID,
			send:    make(chan []byte, sendQueueSize),
			done:    make(chan struct{}),
			limiter: hub.newLimiter(),
		}

		if !hub.connect(client) {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			conn.Close()
			return
		}
		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.maxFrameBytes())
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws read error", "error", err, "room_id", c.roomID, "conn_id", c.id)
			}
			return
		}
		c.handleText(string(data))
	}
}

func (c *Client) handleText(content string) {
	if !c.limiter.Allow() {
		c.Deliver(encodeError("sending too fast", "RATE_LIMITED"))
		return
	}
	_, err := c.hub.service.PostAs(c.hub.ctx, c.roomID, c.email, c.name, content)
	if err == nil {
		return
	}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		c.Deliver(encodeError(verr.Error(), "INVALID_MESSAGE"))
		return
	}
	c.hub.logger.Error("failed to post message", "error", err, "room_id", c.roomID, "conn_id", c.id)
	c.Deliver(encodeError("failed to send message", "INTERNAL_ERROR"))
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
