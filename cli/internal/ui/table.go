package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RoomInfo is shown after a room is created.
type RoomInfo struct {
	RoomID string
}

func NewRoomInfo(roomID string) *RoomInfo {
	return &RoomInfo{RoomID: roomID}
}

func (r *RoomInfo) View() string {
	content := fmt.Sprintf("%s Room Created!\n\n%s Room code:  %s\n%s Share:      %s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomID),
		IconPeer, MutedStyle.Render("warpcall join "+r.RoomID),
	)
	return SuccessBoxStyle.Render(content)
}

// CallSummary describes a finished call.
type CallSummary struct {
	Room         string
	Role         string
	RemoteDevice string
	Duration     time.Duration
	RemoteTracks int
	Packets      uint64
	Bytes        uint64
	Ended        string
}

// CallSummaryView renders s as a table.
func CallSummaryView(s CallSummary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Color.Header = text.Colors{text.FgCyan, text.Bold}
	tw.Style().Options.SeparateRows = false

	peer := s.RemoteDevice
	if peer == "" {
		peer = "-"
	}
	role := s.Role
	if role == "" {
		role = "-"
	}

	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Room", s.Room},
		{"Role", role},
		{"Peer", peer},
		{"Call time", formatDuration(s.Duration)},
		{"Remote tracks", s.RemoteTracks},
		{"Packets received", s.Packets},
		{"Data received", formatBytes(s.Bytes)},
		{"Ended", s.Ended},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: text.Colors{text.Bold}},
		{Number: 2, Align: text.AlignRight},
	})
	return tw.Render()
}

func RenderCallSummary(s CallSummary) {
	fmt.Println(lipgloss.NewStyle().MarginTop(1).Render(CallSummaryView(s)))
}
