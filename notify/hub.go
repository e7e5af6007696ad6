// Package notify pushes newly stored inbox messages to receivers that hold
// an open websocket.
package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"jobconnect/middleware"
	"jobconnect/models"
	"jobconnect/mq"
)

type Client struct {
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
}

type broadcastMsg struct {
	UserID string
	Data   []byte
}

// Hub owns the connected clients, grouped by user id.
type Hub struct {
	users      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		users:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			if h.users[c.UserID] == nil {
				h.users[c.UserID] = make(map[*Client]bool)
			}
			h.users[c.UserID][c] = true

		case c := <-h.unregister:
			h.remove(c)

		case m := <-h.broadcast:
			for c := range h.users[m.UserID] {
				select {
				case c.Send <- m.Data:
				default:
					// slow consumer
					h.remove(c)
				}
			}

		case <-h.done:
			for _, conns := range h.users {
				for c := range conns {
					close(c.Send)
				}
			}
			h.users = make(map[string]map[*Client]bool)
			return
		}
	}
}

func (h *Hub) remove(c *Client) {
	conns := h.users[c.UserID]
	if conns == nil || !conns[c] {
		return
	}
	delete(conns, c)
	close(c.Send)
	if len(conns) == 0 {
		delete(h.users, c.UserID)
	}
}

// Stop closes every client's send channel and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

type outboundPayload struct {
	Action  string          `json:"action"`
	Message *models.Message `json:"message"`
}

// Deliver is the mq.Handler that routes a message-created event to its receiver.
func (h *Hub) Deliver(evt mq.Event) {
	if evt.Message == nil || evt.Message.ReceiverID == "" {
		return
	}
	data, err := json.Marshal(outboundPayload{Action: "message", Message: evt.Message})
	if err != nil {
		log.Warn().Err(err).Msg("notify: marshal")
		return
	}
	select {
	case h.broadcast <- broadcastMsg{UserID: evt.Message.ReceiverID, Data: data}:
	case <-h.done:
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// WebSocketHandler upgrades GET /api/ws/inbox?token=<jwt>.
func WebSocketHandler(hub *Hub, secret []byte) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		claims, err := middleware.ParseToken(r.URL.Query().Get("token"), secret)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("notify: upgrade")
			return
		}
		client := &Client{
			Conn:   conn,
			Send:   make(chan []byte, 32),
			UserID: claims.UserID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}
		go writePump(client)
		go readPump(client, hub)
	}
}

func writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains control frames; the inbox socket is push-only.
func readPump(c *Client, hub *Hub) {
	defer func() {
		select {
		case hub.unregister <- c:
		case <-hub.done:
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
