package call

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BioHazard786/Warpcall/cli/internal/config"
	"github.com/BioHazard786/Warpcall/cli/internal/negotiation"
	"github.com/BioHazard786/Warpcall/cli/internal/signaling"
	"github.com/BioHazard786/Warpcall/cli/internal/ui"
	"github.com/BioHazard786/Warpcall/cli/internal/webrtc"
)

// requestTimeout bounds how long create and join wait for the server.
const requestTimeout = 10 * time.Second

// Runner drives one participant through a call: signaling connection,
// local media, the negotiation session and the call view.
type Runner struct {
	cfg     *config.Config
	client  *signaling.Client
	handler *signaling.Handler
	sup     *webrtc.Supervisor
	session *negotiation.Session
	view    *ui.CallView

	hangups chan struct{}

	mu    sync.Mutex
	room  string
	role  negotiation.Role
	ended string
}

// NewRunner prepares a runner. Nothing touches the network or the media
// source until Connect and StartMedia.
func NewRunner(cfg *config.Config, source webrtc.MediaSource, device string) (*Runner, error) {
	sup, err := webrtc.NewSupervisor(cfg, source, webrtc.WithDeviceName(device))
	if err != nil {
		return nil, NewError("prepare media", err)
	}
	return &Runner{
		cfg:     cfg,
		sup:     sup,
		hangups: make(chan struct{}, 1),
	}, nil
}

// Connect opens the signaling connection.
func (r *Runner) Connect(ctx context.Context) error {
	client := signaling.NewClient(r.cfg.ServerURL)
	if err := client.Connect(ctx); err != nil {
		return NewError("connect to server", err)
	}

	r.client = client
	r.handler = signaling.NewHandler(client)
	go r.handler.Start()
	return nil
}

// StartMedia acquires local audio and video.
func (r *Runner) StartMedia() error {
	if err := r.sup.Start(); err != nil {
		return NewError("start media", err)
	}
	return nil
}

// CreateRoom asks the server for a new room and returns its code.
func (r *Runner) CreateRoom(ctx context.Context) (string, error) {
	if err := r.client.Send(&signaling.Message{Type: signaling.MessageTypeCreateRoom}); err != nil {
		return "", NewError("create room", ErrServerGone)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	select {
	case code, ok := <-r.handler.RoomCreated:
		if !ok {
			return "", NewError("create room", ErrServerGone)
		}
		r.setRoom(code)
		return code, nil
	case errMsg, ok := <-r.handler.Error:
		if !ok {
			return "", NewError("create room", ErrServerGone)
		}
		return "", WrapError("create room", ErrRejected, errMsg)
	case <-ctx.Done():
		return "", NewError("create room", ErrTimeout)
	}
}

// JoinRoom joins the room under code. Codes are matched as typed apart
// from surrounding whitespace.
func (r *Runner) JoinRoom(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	msg := &signaling.Message{Type: signaling.MessageTypeJoinRoom, RoomID: code}
	if err := r.client.Send(msg); err != nil {
		return NewError("join room", ErrServerGone)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	select {
	case res, ok := <-r.handler.JoinResult:
		if !ok {
			return NewError("join room", ErrServerGone)
		}
		if !res.OK {
			return NewError("join room", joinError(res.Error))
		}
		r.setRoom(code)
		return nil
	case errMsg, ok := <-r.handler.Error:
		if !ok {
			return NewError("join room", ErrServerGone)
		}
		return WrapError("join room", ErrRejected, errMsg)
	case <-ctx.Done():
		return NewError("join room", ErrTimeout)
	}
}

// Run shows the call view and negotiates with whoever shares the room
// until the user ends the call, ctx is cancelled or the server goes away.
// A failed or abandoned call returns to idle and waits for the next peer.
func (r *Runner) Run(ctx context.Context) error {
	r.view = ui.NewCallView(r.Room())
	r.startSession(&opener{
		peers:    r.sup,
		onHello:  r.onHello,
		onHangup: r.onHangup,
	})

	r.view.Start()
	defer r.view.Stop()

	return r.serve(ctx, r.view.Done())
}

func (r *Runner) startSession(o negotiation.Opener) {
	r.session = negotiation.New(negotiation.Config{
		Opener:   o,
		Signaler: r.client,
		Timeout:  r.cfg.Timeout,
		OnStatus: r.onStatus,
	})
	r.session.EnterRoom(r.Room())
}

// serve is the call event loop. Room events are handled strictly in the
// order the server sent them.
func (r *Runner) serve(ctx context.Context, viewDone <-chan struct{}) error {
	h := r.handler
	for {
		select {
		case msg, ok := <-h.Room:
			if !ok {
				return r.serverGone()
			}
			r.session.Handle(msg)

		case errMsg, ok := <-h.Error:
			if !ok {
				return r.serverGone()
			}
			slog.Warn("signaling server error", "error", errMsg)
			r.view.Update(ui.CallState{Note: "Server error: " + errMsg})

		case <-r.hangups:
			r.session.EndCall()
			r.view.Update(ui.CallState{Note: "Peer hung up"})

		case <-viewDone:
			if r.view.EndRequested() {
				r.hangup("Ended by you")
			} else {
				r.hangup("Call view closed")
			}
			return nil

		case <-ctx.Done():
			r.hangup("Interrupted")
			return nil
		}
	}
}

// Room returns the code of the room this runner is in.
func (r *Runner) Room() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.room
}

// Summary describes the call for the closing table.
func (r *Runner) Summary() ui.CallSummary {
	stats := r.sup.Summary()

	r.mu.Lock()
	defer r.mu.Unlock()

	role := ""
	if r.role != negotiation.RoleNone {
		role = r.role.String()
	}
	return ui.CallSummary{
		Room:         r.room,
		Role:         role,
		RemoteDevice: stats.RemoteDevice,
		Duration:     stats.Connected,
		RemoteTracks: stats.RemoteTracks,
		Packets:      stats.Packets,
		Bytes:        stats.Bytes,
		Ended:        r.ended,
	}
}

// Close stops local media and the signaling connection.
func (r *Runner) Close() {
	r.sup.Stop()
	if r.client != nil {
		r.client.Close()
	}
}

func (r *Runner) hangup(reason string) {
	r.sup.Hangup()
	r.session.LeaveRoom()
	if err := r.client.Send(&signaling.Message{Type: signaling.MessageTypeLeaveRoom, RoomID: r.Room()}); err != nil {
		slog.Debug("leave room", "error", err)
	}
	r.setEnded(reason)
}

func (r *Runner) serverGone() error {
	r.session.LeaveRoom()
	r.setEnded("Server connection lost")
	return NewError("call", ErrServerGone)
}

// onStatus runs on whichever goroutine changed the session.
func (r *Runner) onStatus(st negotiation.Status) {
	r.mu.Lock()
	if st.Role != negotiation.RoleNone {
		r.role = st.Role
	}
	r.mu.Unlock()

	r.view.Update(callState(st))
}

func (r *Runner) onHello(h webrtc.Hello) {
	r.view.Update(ui.CallState{Peer: h.Device})
}

func (r *Runner) onHangup() {
	select {
	case r.hangups <- struct{}{}:
	default:
	}
}

func (r *Runner) setRoom(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.room = code
}

func (r *Runner) setEnded(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended == "" {
		r.ended = reason
	}
}

// callState maps a session status onto the call view.
func callState(st negotiation.Status) ui.CallState {
	state := ui.CallState{Status: string(st.Call)}
	if st.Call == negotiation.StatusConnecting {
		state.Detail = st.Phase.String()
	}

	switch {
	case st.Err == nil:
	case errors.Is(st.Err, negotiation.ErrPeerLeft):
		state.Note = "Peer left the room"
	case errors.Is(st.Err, negotiation.ErrNegotiationTimeout):
		state.Note = "Peer did not connect in time"
	default:
		state.Note = "Call failed: " + st.Err.Error()
	}
	return state
}
