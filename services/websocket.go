package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024

	// Messages buffered per client before it is dropped
	sendBuffer = 64
)

// Client is one websocket connection of a signed-in user.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
}

// NewClient creates a client ready to be registered.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{Hub: hub, Conn: conn, Send: make(chan []byte, sendBuffer), UserID: userID}
}

// WebSocketMessage is the standard message format for WebSocket communication
type WebSocketMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// TaskChange is the payload of a tasks_changed message.
type TaskChange struct {
	Op string `json:"op"`
	ID string `json:"id,omitempty"`
}

// ReadPump reads from the connection until it closes. Clients only ever
// send pings; everything else is ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("user", c.UserID).Msg("websocket read failed")
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg WebSocketMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Debug().Err(err).Str("user", c.UserID).Msg("ignoring malformed websocket message")
			continue
		}
		if msg.Type != "ping" {
			continue
		}

		pong, err := json.Marshal(WebSocketMessage{
			Type: "pong",
			Data: map[string]string{"timestamp": time.Now().UTC().Format(time.RFC3339)},
		})
		if err != nil {
			continue
		}
		c.Hub.reply(c, pong)
	}
}

// messageSeparator joins the JSON messages batched into one text frame.
// Watchers split frames on it.
var messageSeparator = []byte("\n")

// WritePump writes hub messages and keepalive pings to the connection.
// Messages that queued up while a frame was being written go out in the
// next frame, newline-separated.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case first, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// unregistered by the hub
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeBatch(first); err != nil {
				log.Debug().Err(err).Str("user_id", c.UserID).Msg("websocket write failed")
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

// writeBatch writes first plus whatever is already queued as one frame.
func (c *Client) writeBatch(first []byte) error {
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	w.Write(first)
	for queued := len(c.Send); queued > 0; queued-- {
		w.Write(messageSeparator)
		w.Write(<-c.Send)
	}
	return w.Close()
}

type userMessage struct {
	userID  string
	client  *Client
	payload []byte
}

// Hub keeps the connections of every user and fans messages out to the
// connections of a single user.
type Hub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan userMessage
	register   chan *Client
	unregister chan *Client
	direct     chan userMessage
	count      chan countRequest
	done       chan struct{}
}

type countRequest struct {
	userID string
	reply  chan int
}

// NewHub creates a new hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan userMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan userMessage, 64),
		count:      make(chan countRequest),
		done:       make(chan struct{}),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Send queues message for every connection of userID.
func (h *Hub) Send(userID string, message WebSocketMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal websocket message")
		return
	}
	select {
	case h.broadcast <- userMessage{userID: userID, payload: payload}:
	case <-h.done:
	}
}

// reply queues payload for one client only.
func (h *Hub) reply(client *Client, payload []byte) {
	select {
	case h.direct <- userMessage{userID: client.UserID, client: client, payload: payload}:
	case <-h.done:
	}
}

// NotifyTaskChange tells the user's connections that a task changed.
func (h *Hub) NotifyTaskChange(userID, op, taskID string) {
	h.Send(userID, WebSocketMessage{Type: "tasks_changed", Data: TaskChange{Op: op, ID: taskID}})
}

// Connections returns the number of open connections of userID.
func (h *Hub) Connections(userID string) int {
	req := countRequest{userID: userID, reply: make(chan int, 1)}
	select {
	case h.count <- req:
		return <-req.reply
	case <-h.done:
		return 0
	}
}

// Run starts the hub's main loop. It closes every client when ctx ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for _, conns := range h.clients {
				for client := range conns {
					close(client.Send)
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			return
		case client := <-h.register:
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			log.Debug().Str("user", client.UserID).Int("connections", len(h.clients[client.UserID])).Msg("client connected")
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.direct:
			if h.clients[msg.userID][msg.client] {
				h.deliver(msg.client, msg.payload)
			}
		case req := <-h.count:
			req.reply <- len(h.clients[req.userID])
		case msg := <-h.broadcast:
			for client := range h.clients[msg.userID] {
				h.deliver(client, msg.payload)
			}
		}
	}
}

func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.Send <- payload:
	default:
		// Client's send buffer is full, assume disconnected
		log.Warn().Str("user", client.UserID).Msg("client send buffer full, dropping connection")
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	conns, ok := h.clients[client.UserID]
	if !ok || !conns[client] {
		return
	}
	delete(conns, client)
	close(client.Send)
	if len(conns) == 0 {
		delete(h.clients, client.UserID)
	}
	log.Debug().Str("user", client.UserID).Msg("client disconnected")
}
