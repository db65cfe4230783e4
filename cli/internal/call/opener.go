package call

import (
	"github.com/BioHazard786/Warpcall/cli/internal/negotiation"
	"github.com/BioHazard786/Warpcall/cli/internal/webrtc"
)

// peerSource is what the opener needs from the supervisor.
type peerSource interface {
	OpenPeer(initiator bool, h webrtc.Handlers) (*webrtc.Peer, error)
}

// opener adapts the supervisor to negotiation sessions, adding the control
// channel callbacks the session does not care about.
type opener struct {
	peers    peerSource
	onHello  func(webrtc.Hello)
	onHangup func()
}

func (o *opener) OpenPeer(initiator bool, ev negotiation.Events) (negotiation.Peer, error) {
	p, err := o.peers.OpenPeer(initiator, webrtc.Handlers{
		OnCandidate: ev.Candidate,
		OnState:     ev.State,
		OnHello:     o.onHello,
		OnHangup:    o.onHangup,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
