package negotiation

import "errors"

var (
	// ErrNegotiationFailed wraps any failure building or applying a
	// session description, and a peer connection that reports failed.
	ErrNegotiationFailed = errors.New("negotiation failed")

	// ErrNegotiationTimeout ends a session that did not connect in time.
	ErrNegotiationTimeout = errors.New("negotiation timed out")

	// ErrPeerLeft ends a session because the other participant left.
	ErrPeerLeft = errors.New("peer left the room")
)
