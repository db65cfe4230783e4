package webrtc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BioHazard786/Warpcall/cli/internal/config"
	"github.com/BioHazard786/Warpcall/cli/internal/version"
	"github.com/pion/interceptor"
	pion "github.com/pion/webrtc/v4"
)

// Supervisor owns local media and the peer connection of the current
// call. Media is acquired once and lives until Stop; peer connections
// come and go with negotiation sessions.
type Supervisor struct {
	cfg          *config.Config
	source       MediaSource
	api          *pion.API
	device       string
	behindTunnel func() bool

	mu      sync.Mutex
	media   *Media
	peer    *Peer
	stopped bool

	stats callStats
}

// Option configures a Supervisor.
type Option func(*supervisorOptions)

type supervisorOptions struct {
	settings     *pion.SettingEngine
	device       string
	behindTunnel func() bool
}

// WithSettingEngine overrides pion's transport settings.
func WithSettingEngine(se pion.SettingEngine) Option {
	return func(o *supervisorOptions) { o.settings = &se }
}

// WithDeviceName sets the name announced to the peer.
func WithDeviceName(name string) Option {
	return func(o *supervisorOptions) { o.device = name }
}

// withTunnelCheck replaces interface inspection in tests.
func withTunnelCheck(fn func() bool) Option {
	return func(o *supervisorOptions) { o.behindTunnel = fn }
}

// NewSupervisor prepares a supervisor. Nothing is acquired until Start.
func NewSupervisor(cfg *config.Config, source MediaSource, opts ...Option) (*Supervisor, error) {
	o := supervisorOptions{device: "warpcall-cli", behindTunnel: behindTunnel}
	for _, opt := range opts {
		opt(&o)
	}

	m := &pion.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	registry := &interceptor.Registry{}
	if err := pion.RegisterDefaultInterceptors(m, registry); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	apiOpts := []func(*pion.API){pion.WithMediaEngine(m), pion.WithInterceptorRegistry(registry)}
	if o.settings != nil {
		apiOpts = append(apiOpts, pion.WithSettingEngine(*o.settings))
	}

	return &Supervisor{
		cfg:          cfg,
		source:       source,
		api:          pion.NewAPI(apiOpts...),
		device:       o.device,
		behindTunnel: o.behindTunnel,
	}, nil
}

// Start acquires local audio and video. Calling it again after success
// does nothing. On failure it returns a *DeviceError and holds nothing.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.media != nil {
		return nil
	}

	m, err := s.source.Acquire(true, true)
	if err != nil {
		var devErr *DeviceError
		if !errors.As(err, &devErr) {
			err = &DeviceError{Device: "media", Err: err}
		}
		return err
	}
	if m.Audio == nil || m.Video == nil {
		m.Release()
		return &DeviceError{Device: "media", Err: errors.New("source returned incomplete media")}
	}

	s.media = m
	slog.Info("local media started")
	return nil
}

// OpenPeer creates the peer connection for a new session with the local
// tracks attached. A previous peer, if any, is closed first. The
// initiator opens the control channel; the responder accepts it.
func (s *Supervisor) OpenPeer(initiator bool, h Handlers) (*Peer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, ErrStopped
	}
	if s.media == nil {
		return nil, ErrNotStarted
	}
	s.closePeerLocked()

	pc, err := s.api.NewPeerConnection(iceConfiguration(s.cfg, s.behindTunnel))
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &Peer{
		pc:       pc,
		handlers: h,
		hello:    Hello{Device: s.device, Version: version.Version},
	}

	for _, track := range []pion.TrackLocal{s.media.Audio, s.media.Video} {
		sender, err := pc.AddTrack(track)
		if err != nil {
			pc.Close()
			return nil, fmt.Errorf("add %s track: %w", track.Kind(), err)
		}
		go drainRTCP(sender)
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil || h.OnCandidate == nil {
			return
		}
		h.OnCandidate(c.ToJSON())
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		slog.Debug("peer connection state", "state", state.String())
		if state == pion.PeerConnectionStateConnected {
			s.stats.connected()
		}
		if h.OnState != nil {
			h.OnState(state)
		}
	})

	pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		slog.Info("remote track", "kind", track.Kind().String(), "codec", track.Codec().MimeType)
		s.stats.remoteTracks.Add(1)
		go s.drainTrack(track)
	})

	userHello := h.OnHello
	p.handlers.OnHello = func(hello Hello) {
		s.stats.setRemoteDevice(hello.Device)
		if userHello != nil {
			userHello(hello)
		}
	}

	if initiator {
		dc, err := pc.CreateDataChannel(controlLabel, nil)
		if err != nil {
			pc.Close()
			return nil, fmt.Errorf("create control channel: %w", err)
		}
		p.attachControl(dc)
	} else {
		pc.OnDataChannel(func(dc *pion.DataChannel) {
			if dc.Label() == controlLabel {
				p.attachControl(dc)
			}
		})
	}

	s.peer = p
	return p, nil
}

// Hangup tells the current peer, if any, that the call is over.
func (s *Supervisor) Hangup() {
	s.mu.Lock()
	p := s.peer
	s.mu.Unlock()

	if p != nil {
		p.Hangup()
	}
}

// ClosePeer closes the current peer connection. It is safe with none.
func (s *Supervisor) ClosePeer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closePeerLocked()
}

// Stop closes the peer connection and releases local media. It is safe
// to call more than once; Start fails afterwards.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	s.closePeerLocked()
	if s.media != nil {
		s.media.Release()
		s.media = nil
		slog.Info("local media released")
	}
}

// Started reports whether local media is held.
func (s *Supervisor) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.media != nil
}

// Summary returns what was received over the life of the supervisor.
func (s *Supervisor) Summary() Summary {
	return s.stats.summary()
}

func (s *Supervisor) closePeerLocked() {
	if s.peer == nil {
		return
	}
	if err := s.peer.Close(); err != nil {
		slog.Debug("close peer connection", "error", err)
	}
	s.peer = nil
}

func (s *Supervisor) drainTrack(track *pion.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		n, _, err := track.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("remote track ended", "kind", track.Kind().String(), "error", err)
			}
			return
		}
		s.stats.packets.Add(1)
		s.stats.bytes.Add(uint64(n))
	}
}

// drainRTCP reads RTCP so interceptors keep running.
func drainRTCP(sender *pion.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

// Summary describes a finished call.
type Summary struct {
	RemoteDevice string
	RemoteTracks int
	Packets      uint64
	Bytes        uint64
	Connected    time.Duration
}

type callStats struct {
	remoteTracks atomic.Int64
	packets      atomic.Uint64
	bytes        atomic.Uint64

	mu           sync.Mutex
	remoteDevice string
	connectedAt  time.Time
}

func (c *callStats) connected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectedAt.IsZero() {
		c.connectedAt = time.Now()
	}
}

func (c *callStats) setRemoteDevice(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remoteDevice = name
}

func (c *callStats) summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		RemoteDevice: c.remoteDevice,
		RemoteTracks: int(c.remoteTracks.Load()),
		Packets:      c.packets.Load(),
		Bytes:        c.bytes.Load(),
	}
	if !c.connectedAt.IsZero() {
		s.Connected = time.Since(c.connectedAt)
	}
	return s
}
