package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallModelStatuses(t *testing.T) {
	m := newCallModel("abc123", make(chan CallState))

	view := m.View()
	assert.Contains(t, view, "abc123")
	assert.Contains(t, view, "IDLE")

	m.Update(CallState{Status: StatusConnecting, Detail: "offer-sent"})
	assert.Contains(t, m.View(), "CONNECTING")
	assert.Contains(t, m.View(), "offer-sent")

	m.Update(CallState{Status: StatusInCall, Peer: "laptop"})
	view = m.View()
	assert.Contains(t, view, "IN CALL")
	assert.Contains(t, view, "laptop")
	assert.Contains(t, view, "0:00")

	// Peer name sticks until replaced.
	m.Update(CallState{Status: StatusIdle, Note: "Peer left the room"})
	view = m.View()
	assert.Contains(t, view, "IDLE")
	assert.Contains(t, view, "laptop")
	assert.Contains(t, view, "Peer left the room")
}

func TestCallModelQuit(t *testing.T) {
	m := newCallModel("abc123", make(chan CallState))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.ended())
	assert.Empty(t, m.View())
}

func TestCallViewUpdateNeverBlocks(t *testing.T) {
	v := NewCallView("abc123")
	for i := 0; i < 100; i++ {
		v.Update(CallState{Status: StatusConnecting})
	}
	assert.False(t, v.EndRequested())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00", formatDuration(0))
	assert.Equal(t, "0:42", formatDuration(42*time.Second))
	assert.Equal(t, "12:05", formatDuration(12*time.Minute+5*time.Second))
	assert.Equal(t, "1:02:09", formatDuration(time.Hour+2*time.Minute+9*time.Second))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.50 KB", formatBytes(1536))
	assert.Equal(t, "2.00 MB", formatBytes(2*1024*1024))
}

func TestCallSummaryView(t *testing.T) {
	out := CallSummaryView(CallSummary{
		Room:         "abc123",
		Role:         "initiator",
		RemoteDevice: "laptop",
		Duration:     90 * time.Second,
		RemoteTracks: 2,
		Packets:      1200,
		Bytes:        3 * 1024 * 1024,
		Ended:        "hung up",
	})
	for _, want := range []string{"abc123", "initiator", "laptop", "1:30", "1200", "3.00 MB", "hung up"} {
		assert.Contains(t, out, want)
	}
}

func TestRoomInfoView(t *testing.T) {
	out := NewRoomInfo("abc123").View()
	assert.Contains(t, out, "warpcall join abc123")
}

func TestCallModelPeerOnlyUpdateKeepsStatus(t *testing.T) {
	m := newCallModel("abc123", make(chan CallState))

	m.Update(CallState{Status: StatusConnecting, Detail: "answer-sent"})
	m.Update(CallState{Peer: "warpcall-cli@desk"})

	view := m.View()
	assert.Contains(t, view, "CONNECTING")
	assert.Contains(t, view, "answer-sent")
	assert.Contains(t, view, "warpcall-cli@desk")
}
