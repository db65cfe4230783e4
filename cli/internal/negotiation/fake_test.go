package negotiation

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/BioHazard786/Warpcall/cli/internal/signaling"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
)

type fakePeer struct {
	mu        sync.Mutex
	initiator bool
	events    Events
	remote    []webrtc.SessionDescription
	added     []webrtc.ICECandidateInit
	closed    bool

	offerErr  error
	answerErr error
	remoteErr error
}

func (p *fakePeer) CreateOffer() (webrtc.SessionDescription, error) {
	if p.offerErr != nil {
		return webrtc.SessionDescription{}, p.offerErr
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 offer"}, nil
}

func (p *fakePeer) CreateAnswer() (webrtc.SessionDescription, error) {
	if p.answerErr != nil {
		return webrtc.SessionDescription{}, p.answerErr
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer"}, nil
}

func (p *fakePeer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	if p.remoteErr != nil {
		return p.remoteErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remote = append(p.remote, desc)
	return nil
}

func (p *fakePeer) AddICECandidate(c webrtc.ICECandidateInit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added = append(p.added, c)
	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeer) Added() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.added))
	for i, c := range p.added {
		out[i] = c.Candidate
	}
	return out
}

func (p *fakePeer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// fakeOpener hands out fakePeers and remembers them. configure, when set,
// adjusts each peer before it is returned.
type fakeOpener struct {
	mu        sync.Mutex
	peers     []*fakePeer
	err       error
	configure func(*fakePeer)
}

func (o *fakeOpener) OpenPeer(initiator bool, ev Events) (Peer, error) {
	if o.err != nil {
		return nil, o.err
	}
	p := &fakePeer{initiator: initiator, events: ev}
	if o.configure != nil {
		o.configure(p)
	}
	o.mu.Lock()
	o.peers = append(o.peers, p)
	o.mu.Unlock()
	return p, nil
}

func (o *fakeOpener) last(t *testing.T) *fakePeer {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.peers, "no peer opened")
	return o.peers[len(o.peers)-1]
}

func (o *fakeOpener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.peers)
}

type fakeSignaler struct {
	mu   sync.Mutex
	sent []*signaling.Message
	err  error
}

func (f *fakeSignaler) Send(msg *signaling.Message) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSignaler) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.Type
	}
	return out
}

func (f *fakeSignaler) last(t *testing.T) *signaling.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "nothing sent")
	return f.sent[len(f.sent)-1]
}

type statusLog struct {
	mu  sync.Mutex
	all []Status
}

func (l *statusLog) record(s Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = append(l.all, s)
}

func (l *statusLog) calls() []CallStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]CallStatus, len(l.all))
	for i, s := range l.all {
		out[i] = s.Call
	}
	return out
}

func (l *statusLog) last() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.all) == 0 {
		return Status{}
	}
	return l.all[len(l.all)-1]
}

var errBoom = errors.New("boom")

func sdp(t string) json.RawMessage {
	return json.RawMessage(`{"type":"` + t + `","sdp":"v=0 ` + t + `"}`)
}

func candidate(name string) json.RawMessage {
	return json.RawMessage(`{"candidate":"` + name + `","sdpMid":"0"}`)
}
