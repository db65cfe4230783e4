package negotiation

// Phase is where a negotiation session stands.
type Phase int

const (
	Idle Phase = iota
	Initiating
	OfferSent
	AwaitingOffer
	AnswerSent
	Connected
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Initiating:
		return "initiating"
	case OfferSent:
		return "offer-sent"
	case AwaitingOffer:
		return "awaiting-offer"
	case AnswerSent:
		return "answer-sent"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Role is fixed for the lifetime of a session.
type Role int

const (
	RoleNone Role = iota
	Initiator
	Responder
)

func (r Role) String() string {
	switch r {
	case Initiator:
		return "initiator"
	case Responder:
		return "responder"
	default:
		return "none"
	}
}

// CallStatus is the coarse state shown to the user.
type CallStatus string

const (
	StatusIdle       CallStatus = "idle"
	StatusConnecting CallStatus = "connecting"
	StatusInCall     CallStatus = "in-call"
)

// StatusOf projects a phase onto the user-visible call status.
func StatusOf(p Phase) CallStatus {
	switch p {
	case Idle:
		return StatusIdle
	case Connected:
		return StatusInCall
	default:
		return StatusConnecting
	}
}

// Status is published on every phase change. Err is set when the change
// was a teardown caused by a failure, a timeout or the peer leaving.
type Status struct {
	Call  CallStatus
	Phase Phase
	Role  Role
	Err   error
}
