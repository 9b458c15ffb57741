package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"
	"wave/internal/chatstate"

	"github.com/gorilla/websocket"
)

// Client is one WebSocket connection bound to a user session.
type Client struct {
	UserID   string
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	mu       sync.Mutex
	isClosed bool
}

// ServeWS upgrades the request and binds the connection to the user's
// session. The caller has already authenticated the user.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, user chatstate.User) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	store := h.Session(user)

	client := &Client{
		UserID: user.ID,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, maxSendChannelSize),
	}
	h.attach(user.ID, client)

	// Initial snapshot so the client can render without a REST round trip.
	client.SendJSON(OutEvent{
		Type:      EventTypeState,
		Chats:     store.Chats(),
		Timestamp: time.Now(),
	})

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.detach(c.UserID, c)
		c.Close()
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
				log.Printf("ws: read error for user %s: %v", c.UserID, err)
			}
			return
		}

		var ev InEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.SendJSON(OutEvent{Type: EventTypeError, Error: "malformed event", Timestamp: time.Now()})
			continue
		}

		if !c.hub.Dispatch(c.UserID, ev) {
			c.SendJSON(OutEvent{Type: EventTypeError, Error: "server busy", Timestamp: time.Now()})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
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

func (c *Client) SendJSON(ev OutEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ws: failed to marshal event: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw queues a frame, dropping it if the client cannot keep up.
func (c *Client) SendRaw(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed {
		return
	}

	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed {
		return
	}
	c.isClosed = true
	close(c.send)
	c.conn.Close()
}
