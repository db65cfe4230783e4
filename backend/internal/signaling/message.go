package signaling

import "encoding/json"

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) websocket messages.
type Message struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"room_id,omitempty"`
	MemberID string          `json:"member_id,omitempty"`
	OK       bool            `json:"ok,omitempty"`
	Error    string          `json:"error,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Message type constants.
const (
	MessageTypeCreateRoom = "create_room"
	MessageTypeJoinRoom   = "join_room"
	MessageTypeLeaveRoom  = "leave_room"

	MessageTypeRoomCreated = "room_created"
	MessageTypeJoinResult  = "join_result"
	MessageTypePeerJoined  = "peer_joined"
	MessageTypePeerLeft    = "peer_left"
	MessageTypeError       = "error"

	// Negotiation messages. The hub relays these without looking at Payload.
	MessageTypeOffer     = "offer"
	MessageTypeAnswer    = "answer"
	MessageTypeCandidate = "candidate"
)

// IsNegotiation reports whether t is one of the relayed negotiation types.
func IsNegotiation(t string) bool {
	switch t {
	case MessageTypeOffer, MessageTypeAnswer, MessageTypeCandidate:
		return true
	}
	return false
}
