package negotiation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BioHazard786/Warpcall/cli/internal/signaling"
	"github.com/pion/webrtc/v4"
)

// DefaultQueueLimit bounds the candidates held while no remote description
// is set.
const DefaultQueueLimit = 64

// Peer is the part of a peer connection negotiation drives. CreateOffer
// and CreateAnswer also install the result as the local description.
type Peer interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(c webrtc.ICECandidateInit) error
	Close() error
}

// Events are the peer connection callbacks a session listens to. They may
// fire on any goroutine.
type Events struct {
	Candidate func(c webrtc.ICECandidateInit)
	State     func(state webrtc.PeerConnectionState)
}

// Opener creates the peer connection for a new session.
type Opener interface {
	OpenPeer(initiator bool, ev Events) (Peer, error)
}

// Signaler sends messages to the signaling server.
type Signaler interface {
	Send(msg *signaling.Message) error
}

// Config configures a Session.
type Config struct {
	Opener   Opener
	Signaler Signaler

	// Timeout tears down a session that has not connected in time.
	// Zero disables it.
	Timeout time.Duration

	// QueueLimit bounds pending remote candidates. Zero means
	// DefaultQueueLimit.
	QueueLimit int

	// OnStatus receives every status change, outside the session lock.
	OnStatus func(Status)

	Logger *slog.Logger
}

// Session is the client side negotiation state machine for one room. The
// participant already in the room offers when peer_joined arrives; the
// joiner answers the offer it receives.
type Session struct {
	cfg Config
	log *slog.Logger

	mu        sync.Mutex
	room      string
	phase     Phase
	role      Role
	peer      Peer
	remoteSet bool
	queue     []webrtc.ICECandidateInit

	// gen changes with every session start and teardown; callbacks carry
	// the value they were created with and are ignored once it moves on.
	gen    uint64
	timer  *time.Timer
	notify []Status
}

// New creates an idle session that is not in any room.
func New(cfg Config) *Session {
	if cfg.QueueLimit <= 0 {
		cfg.QueueLimit = DefaultQueueLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg: cfg,
		log: logger.With("component", "negotiation"),
	}
}

// EnterRoom records that this participant now occupies room code. Entering
// a different room ends any call in progress.
func (s *Session) EnterRoom(code string) {
	s.mu.Lock()
	defer s.unlock()

	if s.room != "" && s.room != code {
		s.teardownLocked(nil)
	}
	s.room = code
}

// LeaveRoom ends any call in progress and forgets the room.
func (s *Session) LeaveRoom() {
	s.mu.Lock()
	defer s.unlock()

	s.teardownLocked(nil)
	s.room = ""
}

// EndCall tears the current session down. The room is kept.
func (s *Session) EndCall() {
	s.mu.Lock()
	defer s.unlock()

	s.teardownLocked(nil)
}

// Handle dispatches a message from the signaling server. Negotiation
// messages for a room other than the current one are discarded.
func (s *Session) Handle(msg *signaling.Message) {
	switch msg.Type {
	case signaling.MessageTypePeerJoined:
		s.PeerJoined(msg.MemberID)
	case signaling.MessageTypePeerLeft:
		s.PeerLeft(msg.MemberID)
	case signaling.MessageTypeOffer, signaling.MessageTypeAnswer, signaling.MessageTypeCandidate:
		if room := s.Room(); msg.RoomID != "" && msg.RoomID != room {
			s.log.Debug("discarding message for another room", "type", msg.Type, "room", msg.RoomID)
			return
		}
		switch msg.Type {
		case signaling.MessageTypeOffer:
			s.Offer(msg.Payload)
		case signaling.MessageTypeAnswer:
			s.Answer(msg.Payload)
		default:
			s.Candidate(msg.Payload)
		}
	default:
		s.log.Debug("ignoring message", "type", msg.Type)
	}
}

// PeerJoined starts a session as initiator: build an offer and send it.
func (s *Session) PeerJoined(memberID string) {
	s.mu.Lock()
	defer s.unlock()

	if s.room == "" {
		s.log.Debug("discarding peer_joined outside a room", "member", memberID)
		return
	}
	if s.phase != Idle {
		s.log.Warn("discarding peer_joined", "phase", s.phase, "member", memberID)
		return
	}

	if err := s.beginLocked(Initiator, Initiating); err != nil {
		s.failLocked(err)
		return
	}

	offer, err := s.peer.CreateOffer()
	if err != nil {
		s.failLocked(fmt.Errorf("create offer: %w", err))
		return
	}

	s.setPhaseLocked(OfferSent, nil)
	if err := s.sendLocked(signaling.MessageTypeOffer, offer); err != nil {
		s.failLocked(fmt.Errorf("send offer: %w", err))
	}
}

// Offer starts a session as responder: apply the remote offer, build an
// answer and send it.
func (s *Session) Offer(payload json.RawMessage) {
	s.mu.Lock()
	defer s.unlock()

	if s.room == "" || s.phase != Idle {
		s.log.Warn("discarding offer", "phase", s.phase)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		s.rejectLocked(fmt.Errorf("decode offer: %w", err))
		return
	}
	if offer.Type != webrtc.SDPTypeOffer {
		s.rejectLocked(fmt.Errorf("expected offer, got %s", offer.Type))
		return
	}

	if err := s.beginLocked(Responder, AwaitingOffer); err != nil {
		s.failLocked(err)
		return
	}

	if err := s.applyRemoteLocked(offer); err != nil {
		s.failLocked(err)
		return
	}

	answer, err := s.peer.CreateAnswer()
	if err != nil {
		s.failLocked(fmt.Errorf("create answer: %w", err))
		return
	}

	s.setPhaseLocked(AnswerSent, nil)
	if err := s.sendLocked(signaling.MessageTypeAnswer, answer); err != nil {
		s.failLocked(fmt.Errorf("send answer: %w", err))
	}
}

// Answer completes the initiator's side of the handshake.
func (s *Session) Answer(payload json.RawMessage) {
	s.mu.Lock()
	defer s.unlock()

	if s.phase != OfferSent {
		s.log.Warn("discarding answer", "phase", s.phase)
		return
	}

	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		s.failLocked(fmt.Errorf("decode answer: %w", err))
		return
	}
	if answer.Type != webrtc.SDPTypeAnswer {
		s.failLocked(fmt.Errorf("expected answer, got %s", answer.Type))
		return
	}

	if err := s.applyRemoteLocked(answer); err != nil {
		s.failLocked(err)
		return
	}

	s.stopTimerLocked()
	s.setPhaseLocked(Connected, nil)
}

// Candidate applies a remote ICE candidate, or queues it until the remote
// description is set. Candidates outside a session are discarded.
func (s *Session) Candidate(payload json.RawMessage) {
	s.mu.Lock()
	defer s.unlock()

	if s.phase == Idle {
		s.log.Debug("discarding candidate outside a session")
		return
	}

	var c webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &c); err != nil {
		s.log.Warn("discarding malformed candidate", "error", err)
		return
	}

	if !s.remoteSet {
		if len(s.queue) >= s.cfg.QueueLimit {
			s.log.Warn("candidate queue full, dropping candidate", "limit", s.cfg.QueueLimit)
			return
		}
		s.queue = append(s.queue, c)
		return
	}

	if err := s.peer.AddICECandidate(c); err != nil {
		s.log.Warn("failed to add candidate", "error", err)
	}
}

// PeerLeft ends the session; the remaining participant goes back to
// waiting in the room.
func (s *Session) PeerLeft(memberID string) {
	s.mu.Lock()
	defer s.unlock()

	s.log.Info("peer left", "member", memberID)
	s.teardownLocked(ErrPeerLeft)
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Role returns the role of the current session, RoleNone when idle.
func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Room returns the current room code, empty when not in a room.
func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Pending returns the number of queued remote candidates.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Session) beginLocked(role Role, phase Phase) error {
	s.gen++
	gen := s.gen
	s.role = role
	s.setPhaseLocked(phase, nil)

	if s.cfg.Timeout > 0 {
		s.timer = time.AfterFunc(s.cfg.Timeout, func() { s.expire(gen) })
	}

	peer, err := s.cfg.Opener.OpenPeer(role == Initiator, Events{
		Candidate: func(c webrtc.ICECandidateInit) { s.localCandidate(gen, c) },
		State:     func(state webrtc.PeerConnectionState) { s.peerState(gen, state) },
	})
	if err != nil {
		return fmt.Errorf("open peer: %w", err)
	}
	s.peer = peer
	return nil
}

func (s *Session) applyRemoteLocked(desc webrtc.SessionDescription) error {
	if err := s.peer.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote %s: %w", desc.Type, err)
	}
	s.remoteSet = true

	queued := s.queue
	s.queue = nil
	for _, c := range queued {
		if err := s.peer.AddICECandidate(c); err != nil {
			s.log.Warn("failed to add queued candidate", "error", err)
		}
	}
	return nil
}

func (s *Session) sendLocked(msgType string, v any) error {
	msg, err := signaling.NewNegotiation(msgType, s.room, v)
	if err != nil {
		return err
	}
	return s.cfg.Signaler.Send(msg)
}

func (s *Session) localCandidate(gen uint64, c webrtc.ICECandidateInit) {
	s.mu.Lock()
	defer s.unlock()

	if gen != s.gen || s.phase == Idle {
		return
	}
	if err := s.sendLocked(signaling.MessageTypeCandidate, c); err != nil {
		s.log.Warn("failed to send candidate", "error", err)
	}
}

func (s *Session) peerState(gen uint64, state webrtc.PeerConnectionState) {
	s.mu.Lock()
	defer s.unlock()

	if gen != s.gen {
		return
	}
	s.log.Debug("peer connection state", "state", state.String(), "phase", s.phase)

	switch state {
	case webrtc.PeerConnectionStateConnected:
		if s.phase == AnswerSent {
			s.stopTimerLocked()
			s.setPhaseLocked(Connected, nil)
		}
	case webrtc.PeerConnectionStateFailed:
		s.failLocked(errors.New("peer connection failed"))
	}
}

func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	defer s.unlock()

	if gen != s.gen || s.phase == Idle || s.phase == Connected {
		return
	}
	s.log.Warn("negotiation timed out", "phase", s.phase, "timeout", s.cfg.Timeout)
	s.teardownLocked(ErrNegotiationTimeout)
}

func (s *Session) failLocked(err error) {
	s.log.Error("negotiation failed", "phase", s.phase, "error", err)
	s.teardownLocked(fmt.Errorf("%w: %w", ErrNegotiationFailed, err))
}

// rejectLocked reports a remote description that could not start a
// session. No session exists yet, so the phase stays Idle.
func (s *Session) rejectLocked(err error) {
	s.log.Warn("rejecting remote description", "phase", s.phase, "error", err)
	s.notify = append(s.notify, Status{
		Call:  StatusOf(s.phase),
		Phase: s.phase,
		Role:  s.role,
		Err:   fmt.Errorf("%w: %w", ErrNegotiationFailed, err),
	})
}

// teardownLocked closes the peer, clears the queue and returns to Idle.
func (s *Session) teardownLocked(cause error) {
	if s.phase == Idle && s.peer == nil {
		return
	}

	s.gen++
	s.stopTimerLocked()
	if s.peer != nil {
		if err := s.peer.Close(); err != nil {
			s.log.Debug("closing peer", "error", err)
		}
		s.peer = nil
	}
	s.queue = nil
	s.remoteSet = false

	s.setPhaseLocked(Idle, cause)
	s.role = RoleNone
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) setPhaseLocked(p Phase, err error) {
	if p == s.phase && err == nil {
		return
	}
	s.phase = p
	s.notify = append(s.notify, Status{Call: StatusOf(p), Phase: p, Role: s.role, Err: err})
}

// unlock releases the lock and then publishes queued status changes, so
// a listener may call back into the session.
func (s *Session) unlock() {
	pending := s.notify
	s.notify = nil
	s.mu.Unlock()

	if s.cfg.OnStatus == nil {
		return
	}
	for _, st := range pending {
		s.cfg.OnStatus(st)
	}
}
