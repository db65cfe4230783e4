package webrtc

import "github.com/vmihailenco/msgpack/v5"

// controlLabel names the data channel the initiator opens for call control.
const controlLabel = "control"

// Control message types.
const (
	ControlHello  = "hello"
	ControlHangup = "hangup"
)

// ControlMessage is the msgpack envelope on the control channel.
type ControlMessage struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

// Hello introduces each side once the control channel opens.
type Hello struct {
	Device  string `msgpack:"device"`
	Version string `msgpack:"version"`
}

// DecodePayload decodes the message payload into the provided struct
func (m ControlMessage) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// encodeControl builds a framed control message. A nil payload is omitted.
func encodeControl(t string, payload any) ([]byte, error) {
	msg := ControlMessage{Type: t}
	if payload != nil {
		b, err := msgpack.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = b
	}
	return msgpack.Marshal(msg)
}

func decodeControl(data []byte) (ControlMessage, error) {
	var msg ControlMessage
	err := msgpack.Unmarshal(data, &msg)
	return msg, err
}
