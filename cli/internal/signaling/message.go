package signaling

import "encoding/json"

// Message represents all WebSocket messages between CLI and server.
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

	MessageTypeOffer     = "offer"
	MessageTypeAnswer    = "answer"
	MessageTypeCandidate = "candidate"
)

// Join error codes carried in join_result.error.
const (
	ErrorInvalidCode  = "invalid_code"
	ErrorRoomNotFound = "room_not_found"
	ErrorRoomFull     = "room_full"
)

// NewNegotiation builds an offer, answer or candidate message for roomID
// with v encoded as the opaque payload.
func NewNegotiation(msgType, roomID string, v any) (*Message, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, RoomID: roomID, Payload: payload}, nil
}

// JoinResult is the outcome of a join_room request.
type JoinResult struct {
	RoomID string
	OK     bool
	Error  string
}
