package signaling_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/Warpcall/backend/internal/signaling"
	"github.com/BioHazard786/Warpcall/backend/internal/testutil"
)

func newMember(i int) *testutil.MockMember {
	return testutil.NewMockMember(fmt.Sprintf("member-%d", i))
}

// fixedCodes returns a code source that yields codes in order.
func fixedCodes(codes ...string) func() string {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i%len(codes)]
		i++
		return c
	}
}

func TestCreateRoomRejectsCodesInUse(t *testing.T) {
	t.Parallel()
	h := signaling.NewHub(signaling.WithCodeSource(fixedCodes("ab12cd", "ab12cd", "ab12cd", "xy34zw")))

	first := h.CreateRoom(testutil.NewMockMember("a"))
	second := h.CreateRoom(testutil.NewMockMember("b"))

	assert.Equal(t, "ab12cd", first)
	assert.Equal(t, "xy34zw", second)
}

func TestJoinRoomErrorOrder(t *testing.T) {
	t.Parallel()
	h := signaling.NewHub(signaling.WithCodeSource(fixedCodes("ab12cd")))
	a, b, c := testutil.NewMockMember("a"), testutil.NewMockMember("b"), testutil.NewMockMember("c")
	code := h.CreateRoom(a)
	require.NoError(t, h.JoinRoom(code, b))

	tests := []struct {
		name string
		code string
		want error
	}{
		{"malformed", "AB12CD", signaling.ErrInvalidCode},
		{"too short", "ab1", signaling.ErrInvalidCode},
		{"missing", "zz99zz", signaling.ErrRoomNotFound},
		{"full", code, signaling.ErrRoomFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, h.JoinRoom(tt.code, c), tt.want)
		})
	}

	occupants, ok := h.Occupants(code)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, occupants)
	assert.Empty(t, c.Messages())
}

func TestJoinNotifiesOnlyExistingOccupant(t *testing.T) {
	t.Parallel()
	h := signaling.NewHub()
	a, b := testutil.NewMockMember("a"), testutil.NewMockMember("b")

	code := h.CreateRoom(a)
	require.NoError(t, h.JoinRoom(code, b))

	joined := a.OfType(signaling.MessageTypePeerJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, "b", joined[0].MemberID)
	assert.Equal(t, code, joined[0].RoomID)

	msgs := b.Messages()
	require.Len(t, msgs, 1, "joiner gets only its acknowledgement")
	assert.Equal(t, signaling.MessageTypeJoinResult, msgs[0].Type)
	assert.True(t, msgs[0].OK)
	assert.Equal(t, code, msgs[0].RoomID)
}

// The joiner's acknowledgement is queued before the occupant hears of the
// join, so a reply the occupant sends from its peer_joined handler always
// reaches the joiner after join_result.
func TestJoinAckPrecedesOccupantReply(t *testing.T) {
	t.Parallel()
	h := signaling.NewHub()
	a := &relayOnJoin{MockMember: testutil.NewMockMember("a"), hub: h}
	b := testutil.NewMockMember("b")

	code := h.CreateRoom(a)
	a.code = code
	require.NoError(t, h.JoinRoom(code, b))

	// a relays from its own goroutine once it sees peer_joined.
	a.wait()
	msgs := b.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, signaling.MessageTypeJoinResult, msgs[0].Type)
	assert.Equal(t, signaling.MessageTypeOffer, msgs[1].Type)
}

// relayOnJoin answers peer_joined with an offer, the way a client does,
// from a separate goroutine since Send runs under the hub lock.
type relayOnJoin struct {
	*testutil.MockMember
	hub  *signaling.Hub
	code string
	wg   sync.WaitGroup
}

func (r *relayOnJoin) Send(msg *signaling.Message) bool {
	ok := r.MockMember.Send(msg)
	if msg.Type == signaling.MessageTypePeerJoined {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.hub.Relay(r.code, r, &signaling.Message{Type: signaling.MessageTypeOffer, RoomID: r.code})
		}()
	}
	return ok
}

func (r *relayOnJoin) wait() { r.wg.Wait() }

func TestJoinSameRoomTwiceIsNoop(t *testing.T) {
	t.Parallel()
	h := signaling.NewHub()
	a, b := testutil.NewMockMember("a"), testutil.NewMockMember("b")

	code := h.CreateRoom(a)
	require.NoError(t, h.JoinRoom(code, b))
	require.NoError(t, h.JoinRoom(code, b))

	assert.Len(t, a.OfType(signaling.MessageTypePeerJoined), 1)
	assert.Len(t, b.OfType(signaling.MessageTypeJoinResult), 2, "each join is acknowledged")
	occupants, _ := h.Occupants(code)
	assert.Equal(t, []string{"a", "b"}, occupants)
}

func TestLeaveRoom(t *testing.T) {
	t.Parallel()
	h := signaling.NewHub()
	a, b := testutil.NewMockMember("a"), testutil.NewMockMember("b")

	code := h.CreateRoom(a)
	require.NoError(t, h.JoinRoom(code, b))

	h.LeaveRoom(code, a)
	left := b.OfType(signaling.MessageTypePeerLeft)
	require.Len(t, left, 1)
	assert.Equal(t, "a", left[0].MemberID)
	assert.Empty(t, a.OfType(signaling.MessageTypePeerLeft), "leaver must not be notified")

	occupants, ok := h.Occupants(code)
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, occupants)

	h.LeaveRoom(code, b)
	_, ok = h.Occupants(code)
	assert.False(t, ok, "empty room must be deleted")
	assert.Equal(t, signaling.Stats{}, h.Stats())
}

func TestLeaveRoomIsIdempotent(t *testing.T) {
	t.Parallel()
	h := signaling.NewHub()
	a, b := testutil.NewMockMember("a"), testutil.NewMockMember("b")
	code := h.CreateRoom(a)

	h.LeaveRoom("zz99zz", a)
	h.LeaveRoom(code, b)
	h.LeaveRoom("not a code", b)

	occupants, ok := h.Occupants(code)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, occupants)
	assert.Empty(t, a.Messages())
}

func TestDisconnectRepairsRoom(t *testing.T) {
	t.Parallel()
	h := signaling.NewHub()
	a, b := testutil.NewMockMember("a"), testutil.NewMockMember("b")
	code := h.CreateRoom(a)
	require.NoError(t, h.JoinRoom(code, b))

	h.Disconnect(a)
	assert.Len(t, b.OfType(signaling.MessageTypePeerLeft), 1)

	h.Disconnect(b)
	_, ok := h.Occupants(code)
	assert.False(t, ok)

	// Disconnecting a member that is nowhere is fine.
	h.Disconnect(testutil.NewMockMember("ghost"))
}

func TestCreatingSecondRoomLeavesFirst(t *testing.T) {
	t.Parallel()
	h := signaling.NewHub(signaling.WithCodeSource(fixedCodes("aaaaaa", "bbbbbb")))
	a, b := testutil.NewMockMember("a"), testutil.NewMockMember("b")

	first := h.CreateRoom(a)
	require.NoError(t, h.JoinRoom(first, b))
	second := h.CreateRoom(a)

	assert.Len(t, b.OfType(signaling.MessageTypePeerLeft), 1)
	occupants, _ := h.Occupants(first)
	assert.Equal(t, []string{"b"}, occupants)
	occupants, _ = h.Occupants(second)
	assert.Equal(t, []string{"a"}, occupants)
}

func TestRelay(t *testing.T) {
	t.Parallel()
	h := signaling.NewHub()
	a, b := testutil.NewMockMember("a"), testutil.NewMockMember("b")
	code := h.CreateRoom(a)
	require.NoError(t, h.JoinRoom(code, b))

	offer := &signaling.Message{Type: signaling.MessageTypeOffer, RoomID: code, Payload: json.RawMessage(`{"type":"offer","sdp":"v=0"}`)}
	assert.Equal(t, 1, h.Relay(code, a, offer))

	got := b.OfType(signaling.MessageTypeOffer)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(got[0].Payload))
	assert.Empty(t, a.OfType(signaling.MessageTypeOffer), "sender must not get its own message")
}

func TestRelayPreservesSenderOrder(t *testing.T) {
	t.Parallel()
	h := signaling.NewHub()
	a, b := testutil.NewMockMember("a"), testutil.NewMockMember("b")
	code := h.CreateRoom(a)
	require.NoError(t, h.JoinRoom(code, b))

	h.Relay(code, a, &signaling.Message{Type: signaling.MessageTypeOffer, RoomID: code})
	for i := 0; i < 5; i++ {
		h.Relay(code, a, &signaling.Message{Type: signaling.MessageTypeCandidate, RoomID: code, Payload: json.RawMessage(fmt.Sprint(i))})
	}

	msgs := b.Messages()
	require.Len(t, msgs, 7)
	assert.Equal(t, signaling.MessageTypeJoinResult, msgs[0].Type)
	assert.Equal(t, signaling.MessageTypeOffer, msgs[1].Type)
	for i := 0; i < 5; i++ {
		assert.Equal(t, fmt.Sprint(i), string(msgs[i+2].Payload))
	}
}

func TestRelayFromNonMemberIsDropped(t *testing.T) {
	t.Parallel()
	h := signaling.NewHub(signaling.WithCodeSource(fixedCodes("aaaaaa", "bbbbbb")))
	a, b := testutil.NewMockMember("a"), testutil.NewMockMember("b")
	intruder := testutil.NewMockMember("intruder")

	code := h.CreateRoom(a)
	require.NoError(t, h.JoinRoom(code, b))
	h.CreateRoom(intruder)

	msg := &signaling.Message{Type: signaling.MessageTypeOffer, RoomID: code}
	assert.Zero(t, h.Relay(code, intruder, msg))
	assert.Zero(t, h.Relay("zz99zz", a, msg))
	assert.Empty(t, a.OfType(signaling.MessageTypeOffer))
	assert.Empty(t, b.OfType(signaling.MessageTypeOffer))
}

func TestRelayDropsWhenPeerCannotTakeMessage(t *testing.T) {
	t.Parallel()
	h := signaling.NewHub()
	a, b := testutil.NewMockMember("a"), testutil.NewMockMember("b")
	code := h.CreateRoom(a)
	require.NoError(t, h.JoinRoom(code, b))

	b.SetFull(true)
	before := len(a.Messages())
	assert.Zero(t, h.Relay(code, a, &signaling.Message{Type: signaling.MessageTypeAnswer, RoomID: code}))
	assert.Len(t, a.Messages(), before, "drop is not reported to the sender")
	assert.Empty(t, a.OfType(signaling.MessageTypeAnswer))
	assert.Empty(t, a.OfType(signaling.MessageTypeError))
}

func TestThirdParticipantScenario(t *testing.T) {
	t.Parallel()
	h := signaling.NewHub(signaling.WithCodeSource(fixedCodes("ab12cd")))
	a, b, c := testutil.NewMockMember("a"), testutil.NewMockMember("b"), testutil.NewMockMember("c")

	code := h.CreateRoom(a)
	require.Equal(t, "ab12cd", code)
	require.NoError(t, h.JoinRoom(code, b))
	assert.ErrorIs(t, h.JoinRoom(code, c), signaling.ErrRoomFull)

	occupants, _ := h.Occupants(code)
	assert.Equal(t, []string{"a", "b"}, occupants)

	// A drops mid-negotiation, B then leaves too.
	h.Disconnect(a)
	assert.Len(t, b.OfType(signaling.MessageTypePeerLeft), 1)
	h.LeaveRoom(code, b)
	_, ok := h.Occupants(code)
	assert.False(t, ok)
}

func TestConcurrentJoinAndDisconnect(t *testing.T) {
	t.Parallel()
	h := signaling.NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		owner := newMember(i)
		code := h.CreateRoom(owner)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = h.JoinRoom(code, newMember(1000+i))
		}()
		go func() {
			defer wg.Done()
			h.Disconnect(owner)
		}()
	}
	wg.Wait()

	s := h.Stats()
	assert.LessOrEqual(t, s.Members, 50)
	assert.Equal(t, s.Rooms, s.Members, "every surviving room holds exactly one member")
}

func TestJournalRecordsLifecycle(t *testing.T) {
	t.Parallel()
	j := &testutil.MemoryJournal{}
	h := signaling.NewHub(signaling.WithJournal(j))
	a, b := testutil.NewMockMember("a"), testutil.NewMockMember("b")

	code := h.CreateRoom(a)
	require.NoError(t, h.JoinRoom(code, b))
	h.LeaveRoom(code, a)
	h.Disconnect(b)

	assert.Equal(t, []signaling.EventKind{
		signaling.EventRoomCreated,
		signaling.EventPeerJoined,
		signaling.EventPeerLeft,
		signaling.EventPeerLeft,
		signaling.EventRoomDeleted,
	}, j.Kinds())
}
