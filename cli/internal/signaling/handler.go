package signaling

import "log/slog"

// Handler routes incoming signaling messages to typed channels. All
// channels are closed once the connection ends, so a receive that yields
// the zero value with ok == false means the server is gone.
type Handler struct {
	client      *Client
	RoomCreated chan string
	JoinResult  chan JoinResult

	// Room carries peer_joined, peer_left, offer, answer and candidate in
	// the order the server delivered them. They share one channel because
	// a session must see a peer's offer before that peer's departure.
	Room  chan *Message
	Error chan string

	done chan struct{}
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:      client,
		RoomCreated: make(chan string, 1),
		JoinResult:  make(chan JoinResult, 1),
		Room:        make(chan *Message, 64),
		Error:       make(chan string, 4),
		done:        make(chan struct{}),
	}
}

// Start begins listening to incoming messages and routing them. It returns
// when the connection ends.
func (h *Handler) Start() {
	defer h.close()

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case MessageTypeRoomCreated:
			h.RoomCreated <- msg.RoomID

		case MessageTypeJoinResult:
			h.JoinResult <- JoinResult{RoomID: msg.RoomID, OK: msg.OK, Error: msg.Error}

		case MessageTypePeerJoined, MessageTypePeerLeft,
			MessageTypeOffer, MessageTypeAnswer, MessageTypeCandidate:
			h.Room <- msg

		case MessageTypeError:
			select {
			case h.Error <- msg.Error:
			default:
				slog.Warn("dropping server error", "error", msg.Error)
			}

		default:
			slog.Debug("ignoring unknown message", "type", msg.Type)
		}
	}
}

// Done is closed after the connection ends and every channel is closed.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

func (h *Handler) close() {
	close(h.RoomCreated)
	close(h.JoinResult)
	close(h.Room)
	close(h.Error)
	close(h.done)
}
