package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Call statuses the view knows how to render.
const (
	StatusIdle       = "idle"
	StatusConnecting = "connecting"
	StatusInCall     = "in-call"
)

// CallState is one update to the call view.
type CallState struct {
	Status string
	Detail string
	Peer   string
	Note   string
}

type tickMsg time.Time

// CallView runs the live status view of a call.
type CallView struct {
	program *tea.Program
	model   *callModel
	updates chan CallState
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewCallView creates a view for room. It starts idle.
func NewCallView(room string) *CallView {
	updates := make(chan CallState, 32)
	return &CallView{
		model:   newCallModel(room, updates),
		updates: updates,
		done:    make(chan struct{}),
	}
}

// Start starts the UI in a goroutine. Done is closed when it exits.
func (v *CallView) Start() {
	v.program = tea.NewProgram(v.model)
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		defer close(v.done)
		if _, err := v.program.Run(); err != nil {
			fmt.Printf("UI error: %v\n", err)
		}
	}()
}

// Update queues a new state. It never blocks; when the queue is full the
// update is dropped, and the next one supersedes it anyway.
func (v *CallView) Update(state CallState) {
	select {
	case v.updates <- state:
	default:
	}
}

// Done is closed once the view has exited.
func (v *CallView) Done() <-chan struct{} {
	return v.done
}

// EndRequested reports whether the user asked to end the call.
func (v *CallView) EndRequested() bool {
	return v.model.ended()
}

// Stop stops the UI
func (v *CallView) Stop() {
	if v.program != nil {
		v.program.Quit()
	}
	v.wg.Wait()
}

type callModel struct {
	room    string
	spinner spinner.Model
	updates <-chan CallState

	state       CallState
	connectedAt time.Time
	now         time.Time

	mu       sync.Mutex
	quitting bool
}

func newCallModel(room string, updates <-chan CallState) *callModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &callModel{
		room:    room,
		spinner: s,
		updates: updates,
		state:   CallState{Status: StatusIdle},
		now:     time.Now(),
	}
}

func (m *callModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForUpdates(), tick())
}

func (m *callModel) listenForUpdates() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *callModel) ended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quitting
}

func (m *callModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.mu.Lock()
			m.quitting = true
			m.mu.Unlock()
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case CallState:
		m.apply(msg)
		return m, m.listenForUpdates()
	}

	return m, nil
}

func (m *callModel) apply(state CallState) {
	// Peer-only updates keep the current status.
	if state.Status == "" {
		state.Status, state.Detail = m.state.Status, m.state.Detail
		if state.Note == "" {
			state.Note = m.state.Note
		}
	}
	if state.Status == StatusInCall && m.state.Status != StatusInCall {
		m.connectedAt = time.Now()
		m.now = m.connectedAt
	}
	if state.Peer == "" {
		state.Peer = m.state.Peer
	}
	m.state = state
}

func (m *callModel) View() string {
	if m.ended() {
		return ""
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s  %s\n\n", IconCall, TitleStyle.Render("Warpcall"),
		MutedStyle.Render(IconRoom+" "+m.room)))

	switch m.state.Status {
	case StatusInCall:
		b.WriteString(InCallBadge.Render("IN CALL"))
		b.WriteString("  " + IconTime + " " + formatDuration(m.now.Sub(m.connectedAt)))
	case StatusConnecting:
		b.WriteString(ConnectingBadge.Render("CONNECTING"))
		b.WriteString("  " + m.spinner.View())
	default:
		b.WriteString(IdleBadge.Render("IDLE"))
		b.WriteString("  " + MutedStyle.Render(IconWaiting+" waiting for a peer"))
	}
	if m.state.Detail != "" {
		b.WriteString("  " + MutedStyle.Render(m.state.Detail))
	}
	b.WriteString("\n")

	if m.state.Peer != "" {
		b.WriteString(fmt.Sprintf("\n%s %s\n", IconPeer, m.state.Peer))
	}
	if m.state.Note != "" {
		b.WriteString("\n" + WarningStyle.Render(m.state.Note) + "\n")
	}

	b.WriteString("\n" + MutedStyle.Render("Press q to end the call"))
	return CallBoxStyle.Render(b.String())
}
