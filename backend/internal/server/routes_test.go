package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/Warpcall/backend/internal/signaling"
)

func setupServer(t *testing.T) (*httptest.Server, *signaling.Hub) {
	t.Helper()
	reg := prometheus.NewRegistry()
	hub := signaling.NewHub(signaling.WithMetrics(signaling.NewMetrics(reg)))
	srv := httptest.NewServer(NewRouter(hub, Options{
		AllowedOrigins: []string{"*"},
		SendBuffer:     16,
		Gatherer:       reg,
	}))
	t.Cleanup(srv.Close)
	return srv, hub
}

func dialWS(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg signaling.Message) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func readUntilType(t *testing.T, conn *websocket.Conn, msgType string) signaling.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < 20; i++ {
		var msg signaling.Message
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", msgType)
		if msg.Type == msgType {
			return msg
		}
	}
	t.Fatalf("no %s message", msgType)
	return signaling.Message{}
}

func createRoom(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	send(t, conn, signaling.Message{Type: signaling.MessageTypeCreateRoom})
	return readUntilType(t, conn, signaling.MessageTypeRoomCreated).RoomID
}

func TestCallScenario(t *testing.T) {
	srv, hub := setupServer(t)
	a := dialWS(t, srv.URL)
	b := dialWS(t, srv.URL)

	code := createRoom(t, a)
	assert.True(t, signaling.ValidCode(code))

	send(t, b, signaling.Message{Type: signaling.MessageTypeJoinRoom, RoomID: code})
	res := readUntilType(t, b, signaling.MessageTypeJoinResult)
	assert.True(t, res.OK)
	assert.Empty(t, res.Error)

	joined := readUntilType(t, a, signaling.MessageTypePeerJoined)
	assert.NotEmpty(t, joined.MemberID)

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0 offer"}`)
	send(t, a, signaling.Message{Type: signaling.MessageTypeOffer, RoomID: code, Payload: offer})
	got := readUntilType(t, b, signaling.MessageTypeOffer)
	assert.JSONEq(t, string(offer), string(got.Payload))

	answer := json.RawMessage(`{"type":"answer","sdp":"v=0 answer"}`)
	send(t, b, signaling.Message{Type: signaling.MessageTypeAnswer, RoomID: code, Payload: answer})
	got = readUntilType(t, a, signaling.MessageTypeAnswer)
	assert.JSONEq(t, string(answer), string(got.Payload))

	cand := json.RawMessage(`{"candidate":"candidate:1 1 udp 2130706431 10.0.0.1 5000 typ host","sdpMid":"0"}`)
	send(t, b, signaling.Message{Type: signaling.MessageTypeCandidate, RoomID: code, Payload: cand})
	got = readUntilType(t, a, signaling.MessageTypeCandidate)
	assert.JSONEq(t, string(cand), string(got.Payload))

	// B's own candidate was not echoed: the next thing B sees is A's.
	back := json.RawMessage(`{"candidate":"candidate:2 1 udp 2130706431 10.0.0.2 5001 typ host","sdpMid":"0"}`)
	send(t, a, signaling.Message{Type: signaling.MessageTypeCandidate, RoomID: code, Payload: back})
	b.SetReadDeadline(time.Now().Add(5 * time.Second))
	var next signaling.Message
	require.NoError(t, b.ReadJSON(&next))
	assert.Equal(t, signaling.MessageTypeCandidate, next.Type)
	assert.JSONEq(t, string(back), string(next.Payload))

	// A third participant is turned away.
	c := dialWS(t, srv.URL)
	send(t, c, signaling.Message{Type: signaling.MessageTypeJoinRoom, RoomID: code})
	res = readUntilType(t, c, signaling.MessageTypeJoinResult)
	assert.False(t, res.OK)
	assert.Equal(t, signaling.CodeRoomFull, res.Error)

	occupants, ok := hub.Occupants(code)
	require.True(t, ok)
	assert.Len(t, occupants, 2)

	// A drops; B is told, then leaves and the room disappears.
	a.Close()
	left := readUntilType(t, b, signaling.MessageTypePeerLeft)
	assert.Equal(t, occupants[0], left.MemberID)

	send(t, b, signaling.Message{Type: signaling.MessageTypeLeaveRoom, RoomID: code})
	require.Eventually(t, func() bool {
		_, ok := hub.Occupants(code)
		return !ok
	}, 2*time.Second, 20*time.Millisecond)
}

func TestJoinErrors(t *testing.T) {
	srv, _ := setupServer(t)
	conn := dialWS(t, srv.URL)

	send(t, conn, signaling.Message{Type: signaling.MessageTypeJoinRoom, RoomID: "NOPE"})
	res := readUntilType(t, conn, signaling.MessageTypeJoinResult)
	assert.Equal(t, signaling.CodeInvalidCode, res.Error)

	send(t, conn, signaling.Message{Type: signaling.MessageTypeJoinRoom, RoomID: "zz99zz"})
	res = readUntilType(t, conn, signaling.MessageTypeJoinResult)
	assert.Equal(t, signaling.CodeRoomNotFound, res.Error)
}

func TestProtocolErrors(t *testing.T) {
	srv, _ := setupServer(t)
	conn := dialWS(t, srv.URL)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	res := readUntilType(t, conn, signaling.MessageTypeError)
	assert.Equal(t, signaling.CodeBadMessage, res.Error)

	send(t, conn, signaling.Message{Type: "dance"})
	res = readUntilType(t, conn, signaling.MessageTypeError)
	assert.Equal(t, signaling.CodeUnknownMessage, res.Error)
}

func TestHTTPEndpoints(t *testing.T) {
	srv, _ := setupServer(t)
	conn := dialWS(t, srv.URL)
	createRoom(t, conn)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	var stats signaling.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, signaling.Stats{Rooms: 1, Members: 1}, stats)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "warpcall_rooms 1")
	assert.Contains(t, string(body), "warpcall_rooms_created_total 1")
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example"})

	req := httptest.NewRequest(http.MethodGet, "http://signal.example/ws", nil)
	assert.True(t, check(req), "no origin header")

	req.Header.Set("Origin", "https://app.example")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))

	req.Header.Set("Origin", "http://signal.example")
	assert.True(t, check(req), "same host")

	assert.True(t, originChecker([]string{"*"})(req))
}
