package signaling

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Member is one live signaling channel as seen by the hub.
type Member interface {
	// ID returns the opaque member identifier sent in peer_joined/peer_left.
	ID() string

	// Send enqueues msg for delivery without blocking. It returns false
	// when the message was dropped.
	Send(msg *Message) bool
}

// Hub is the room registry and message relay of the signaling server.
// It owns every Room; all membership changes go through its methods and
// are serialized by a single lock. Operations never span two rooms, and
// nothing done under the lock blocks.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*Room

	newCode func() string
	journal Journal
	metrics *Metrics
}

// Option configures a Hub.
type Option func(*Hub)

// WithJournal records room lifecycle events to j.
func WithJournal(j Journal) Option {
	return func(h *Hub) { h.journal = j }
}

// WithMetrics reports hub activity to m.
func WithMetrics(m *Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// NewHub creates a new Hub instance.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		rooms:   make(map[string]*Room),
		newCode: randomCode,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = NewMetrics(nil)
	}
	return h
}

// CreateRoom registers a new room with m as its sole occupant and returns
// its code. Codes are drawn at random until one is not in use. If m was
// already in a room it leaves that room first.
func (h *Hub) CreateRoom(m Member) string {
	h.mu.Lock()
	events := h.leaveAllLocked(m, "")

	code := h.newCode()
	for h.rooms[code] != nil {
		code = h.newCode()
	}

	h.rooms[code] = &Room{ID: code, Members: []Member{m}}
	h.metrics.RoomsCreated.Inc()
	h.updateGaugesLocked()
	events = append(events, newEvent(EventRoomCreated, code, m.ID()))
	h.mu.Unlock()

	log.Info().Str("room_id", code).Str("member_id", m.ID()).Msg("Room created")
	h.record(events)
	return code
}

// JoinRoom adds m to the room registered under code. The checks run in
// order: code format, room existence, capacity. On success m is sent
// join_result{ok} and then the occupant that was already there, and only
// it, receives peer_joined. Both are queued under the hub lock, so m sees
// its acknowledgement before anything the occupant sends in response.
// Failures are returned to the caller and nothing is sent.
//
// Joining a room m already occupies is acknowledged without notifying
// anyone.
func (h *Hub) JoinRoom(code string, m Member) error {
	if !ValidCode(code) {
		h.metrics.Joins.WithLabelValues(CodeInvalidCode).Inc()
		return ErrInvalidCode
	}

	h.mu.Lock()
	room, ok := h.rooms[code]
	if !ok {
		h.mu.Unlock()
		h.metrics.Joins.WithLabelValues(CodeRoomNotFound).Inc()
		return ErrRoomNotFound
	}
	ack := &Message{Type: MessageTypeJoinResult, RoomID: code, OK: true}
	if room.has(m) {
		h.deliverLocked(m, ack)
		h.mu.Unlock()
		return nil
	}
	if room.full() {
		h.mu.Unlock()
		h.metrics.Joins.WithLabelValues(CodeRoomFull).Inc()
		return ErrRoomFull
	}

	events := h.leaveAllLocked(m, code)

	existing := room.Members
	room.Members = append(room.Members, m)
	h.updateGaugesLocked()
	events = append(events, newEvent(EventPeerJoined, code, m.ID()))

	h.deliverLocked(m, ack)
	notice := &Message{Type: MessageTypePeerJoined, RoomID: code, MemberID: m.ID()}
	for _, other := range existing {
		h.deliverLocked(other, notice)
	}
	h.mu.Unlock()

	h.metrics.Joins.WithLabelValues("ok").Inc()
	log.Info().Str("room_id", code).Str("member_id", m.ID()).Msg("Member joined room")
	h.record(events)
	return nil
}

// LeaveRoom removes m from the room under code. The remaining occupant
// receives peer_left and an empty room is deleted. Leaving a room m is not
// in, or one that does not exist, does nothing.
func (h *Hub) LeaveRoom(code string, m Member) {
	h.mu.Lock()
	room, ok := h.rooms[code]
	if !ok {
		h.mu.Unlock()
		return
	}
	events := h.leaveLocked(room, m)
	h.mu.Unlock()

	h.record(events)
}

// Disconnect removes m from every room that holds it. A member is
// normally in at most one room; any number is handled.
func (h *Hub) Disconnect(m Member) {
	h.mu.Lock()
	events := h.leaveAllLocked(m, "")
	h.mu.Unlock()

	h.record(events)
}

// Relay forwards msg to every member of the room under code except sender.
// If sender is not a member of that room the message is dropped, so a
// stale or forged code cannot reach another room. It returns the number
// of members the message was handed to.
func (h *Hub) Relay(code string, sender Member, msg *Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[code]
	if !ok || !room.has(sender) {
		log.Debug().Str("room_id", code).Str("member_id", sender.ID()).Str("type", msg.Type).Msg("Relay dropped: sender not in room")
		return 0
	}

	delivered := 0
	for _, other := range room.Members {
		if other == sender {
			continue
		}
		if h.deliverLocked(other, msg) {
			delivered++
			h.metrics.Relayed.WithLabelValues(msg.Type).Inc()
		}
	}
	return delivered
}

// Stats is a point-in-time summary of the registry.
type Stats struct {
	Rooms   int `json:"rooms"`
	Members int `json:"members"`
}

// Stats returns the current number of rooms and members.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statsLocked()
}

// Occupants returns the member IDs of the room under code in join order.
func (h *Hub) Occupants(code string) ([]string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[code]
	if !ok {
		return nil, false
	}
	ids := make([]string, len(room.Members))
	for i, m := range room.Members {
		ids[i] = m.ID()
	}
	return ids, true
}

// leaveAllLocked removes m from every room other than keep.
func (h *Hub) leaveAllLocked(m Member, keep string) []Event {
	var events []Event
	for code, room := range h.rooms {
		if code == keep || !room.has(m) {
			continue
		}
		events = append(events, h.leaveLocked(room, m)...)
	}
	return events
}

func (h *Hub) leaveLocked(room *Room, m Member) []Event {
	if !room.remove(m) {
		return nil
	}

	events := []Event{newEvent(EventPeerLeft, room.ID, m.ID())}
	log.Info().Str("room_id", room.ID).Str("member_id", m.ID()).Msg("Member left room")

	if len(room.Members) == 0 {
		delete(h.rooms, room.ID)
		events = append(events, newEvent(EventRoomDeleted, room.ID, ""))
		log.Info().Str("room_id", room.ID).Msg("Room deleted")
	} else {
		notice := &Message{Type: MessageTypePeerLeft, RoomID: room.ID, MemberID: m.ID()}
		for _, other := range room.Members {
			h.deliverLocked(other, notice)
		}
	}

	h.updateGaugesLocked()
	return events
}

func (h *Hub) deliverLocked(to Member, msg *Message) bool {
	if to.Send(msg) {
		return true
	}
	h.metrics.Dropped.Inc()
	log.Debug().Str("member_id", to.ID()).Str("type", msg.Type).Msg("Delivery dropped")
	return false
}

func (h *Hub) statsLocked() Stats {
	s := Stats{Rooms: len(h.rooms)}
	for _, room := range h.rooms {
		s.Members += len(room.Members)
	}
	return s
}

func (h *Hub) updateGaugesLocked() {
	s := h.statsLocked()
	h.metrics.Rooms.Set(float64(s.Rooms))
	h.metrics.Members.Set(float64(s.Members))
}

// record hands events to the journal outside the hub lock. A failing
// write is logged and does not stop the rest.
func (h *Hub) record(events []Event) {
	if h.journal == nil {
		return
	}
	for _, ev := range events {
		if err := h.journal.Record(ev); err != nil {
			log.Error().Err(err).Str("room_id", ev.RoomID).Str("event", string(ev.Kind)).Msg("Journal write failed")
		}
	}
}

func newEvent(kind EventKind, roomID, memberID string) Event {
	return Event{Kind: kind, RoomID: roomID, MemberID: memberID, At: time.Now().UTC()}
}
