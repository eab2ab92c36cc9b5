package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same-origin policy is enforced upstream; the cookie already gates
	// the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one websocket connection. userID is captured at connect time and
// zero if the handshake carried no authenticated user.
type Client struct {
	connID string
	userID int
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
}

// ServeWs upgrades the request and registers the connection with the hub.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID int) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		connID: uuid.NewString(),
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump relays inbound frames to the hub. Only the messageDeleted relay is
// accepted from clients; anything else is ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug().Err(err).Str("conn_id", c.connID).Msg("websocket closed")
			}
			return
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			c.hub.logger.Warn().Str("conn_id", c.connID).Msg("malformed client frame")
			continue
		}

		if event.Type == EventMessageDeleted {
			var payload DeletePayload
			if err := json.Unmarshal(event.Payload, &payload); err != nil || len(payload.UserIDs) == 0 {
				c.hub.logger.Warn().Str("conn_id", c.connID).Msg("malformed delete relay")
				continue
			}
			// Relay to the explicit participant list only, never the
			// whole online set.
			c.hub.DeliverMessageDeleted(payload.MessageID, payload.UserIDs)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
