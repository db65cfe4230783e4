package webrtc

import (
	"log/slog"
	"sync"

	pion "github.com/pion/webrtc/v4"
)

// Handlers are the callbacks of one peer connection. Any may be nil.
type Handlers struct {
	OnCandidate func(c pion.ICECandidateInit)
	OnState     func(state pion.PeerConnectionState)
	OnHello     func(h Hello)
	OnHangup    func()
}

// Peer is one call's peer connection with its control channel.
type Peer struct {
	pc       *pion.PeerConnection
	handlers Handlers
	hello    Hello

	mu      sync.Mutex
	control *pion.DataChannel

	closeOnce sync.Once
	closeErr  error
}

// CreateOffer creates an offer and installs it as the local description.
// Candidates trickle through OnCandidate afterwards.
func (p *Peer) CreateOffer() (pion.SessionDescription, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return pion.SessionDescription{}, err
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return pion.SessionDescription{}, err
	}
	return *p.pc.LocalDescription(), nil
}

// CreateAnswer answers the applied remote offer and installs the answer
// as the local description.
func (p *Peer) CreateAnswer() (pion.SessionDescription, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return pion.SessionDescription{}, err
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return pion.SessionDescription{}, err
	}
	return *p.pc.LocalDescription(), nil
}

// SetRemoteDescription applies the remote offer or answer.
func (p *Peer) SetRemoteDescription(desc pion.SessionDescription) error {
	return p.pc.SetRemoteDescription(desc)
}

// AddICECandidate applies a remote candidate.
func (p *Peer) AddICECandidate(c pion.ICECandidateInit) error {
	return p.pc.AddICECandidate(c)
}

// Close closes the peer connection. Later calls return the first result.
func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.pc.Close()
	})
	return p.closeErr
}

// Hangup tells the remote side the call is over. It does nothing when
// the control channel is not open.
func (p *Peer) Hangup() {
	p.sendControl(ControlHangup, nil)
}

func (p *Peer) attachControl(dc *pion.DataChannel) {
	p.mu.Lock()
	p.control = dc
	p.mu.Unlock()

	dc.OnOpen(func() {
		p.sendControl(ControlHello, p.hello)
	})

	dc.OnMessage(func(msg pion.DataChannelMessage) {
		ctrl, err := decodeControl(msg.Data)
		if err != nil {
			slog.Warn("bad control message", "error", err)
			return
		}

		switch ctrl.Type {
		case ControlHello:
			var hello Hello
			if err := ctrl.DecodePayload(&hello); err != nil {
				slog.Warn("bad hello", "error", err)
				return
			}
			if p.handlers.OnHello != nil {
				p.handlers.OnHello(hello)
			}
		case ControlHangup:
			if p.handlers.OnHangup != nil {
				p.handlers.OnHangup()
			}
		default:
			slog.Debug("unknown control message", "type", ctrl.Type)
		}
	})
}

func (p *Peer) sendControl(t string, payload any) {
	p.mu.Lock()
	dc := p.control
	p.mu.Unlock()

	if dc == nil || dc.ReadyState() != pion.DataChannelStateOpen {
		return
	}

	data, err := encodeControl(t, payload)
	if err != nil {
		slog.Error("encode control message", "type", t, "error", err)
		return
	}
	if err := dc.Send(data); err != nil {
		slog.Debug("send control message", "type", t, "error", err)
	}
}
