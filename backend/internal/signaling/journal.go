package signaling

import "time"

// EventKind names a room lifecycle event.
type EventKind string

const (
	EventRoomCreated EventKind = "room_created"
	EventPeerJoined  EventKind = "peer_joined"
	EventPeerLeft    EventKind = "peer_left"
	EventRoomDeleted EventKind = "room_deleted"
)

// Event is a single room lifecycle change.
type Event struct {
	Kind     EventKind
	RoomID   string
	MemberID string
	At       time.Time
}

// Journal receives room lifecycle events after the hub has applied them.
// It is an audit trail only; the hub never reads it back.
type Journal interface {
	Record(Event) error
}
