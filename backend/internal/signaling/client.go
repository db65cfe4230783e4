package signaling

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024 // 64 KB - enough for SDP with many candidates

	// DefaultSendBuffer is the outbound queue length per client.
	DefaultSendBuffer = 256
)

// Client is a wrapper for a single websocket connection (a participant).
// It is the Member the hub sees.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   string
	log  zerolog.Logger

	// send is a buffered channel for all outbound messages. A separate
	// goroutine (WritePump) drains it to the websocket.
	send chan *Message

	mu     sync.Mutex
	closed bool
}

// NewClient wraps conn with a fresh member identifier.
func NewClient(hub *Hub, conn *websocket.Conn, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	id := uuid.NewString()
	return &Client{
		hub:  hub,
		conn: conn,
		id:   id,
		log:  log.With().Str("member_id", id).Logger(),
		send: make(chan *Message, sendBuffer),
	}
}

// ID returns the member identifier.
func (c *Client) ID() string {
	return c.id
}

// Send queues msg for the write pump. A full queue or a closed client
// drops the message.
func (c *Client) Send(msg *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close stops the write pump. Safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. All reads
// happen here, which is also what keeps one sender's messages in order.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.close()
		c.conn.Close()
		c.log.Info().Msg("Client disconnected")
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
				c.log.Warn().Err(err).Msg("Read error")
			}
			return
		}
		c.handleMessage(data)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.log.Debug().Err(err).Msg("Write error")
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

func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Send(&Message{Type: MessageTypeError, Error: CodeBadMessage})
		return
	}

	switch msg.Type {
	case MessageTypeCreateRoom:
		code := c.hub.CreateRoom(c)
		c.Send(&Message{Type: MessageTypeRoomCreated, RoomID: code})

	case MessageTypeJoinRoom:
		// A successful join is acknowledged by the hub itself.
		if err := c.hub.JoinRoom(msg.RoomID, c); err != nil {
			c.log.Info().Str("room_id", msg.RoomID).Err(err).Msg("Join rejected")
			c.Send(&Message{Type: MessageTypeJoinResult, RoomID: msg.RoomID, Error: Code(err)})
		}

	case MessageTypeLeaveRoom:
		c.hub.LeaveRoom(msg.RoomID, c)

	default:
		if !IsNegotiation(msg.Type) {
			c.log.Debug().Str("type", msg.Type).Msg("Unknown message type")
			c.Send(&Message{Type: MessageTypeError, Error: CodeUnknownMessage})
			return
		}
		// Negotiation payloads are opaque; only the routing fields are kept.
		if msg.RoomID == "" {
			return
		}
		c.hub.Relay(msg.RoomID, c, &Message{
			Type:    msg.Type,
			RoomID:  msg.RoomID,
			Payload: msg.Payload,
		})
	}
}
