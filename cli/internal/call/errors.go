package call

import (
	"errors"
	"fmt"

	"github.com/BioHazard786/Warpcall/cli/internal/signaling"
	"github.com/BioHazard786/Warpcall/cli/internal/ui"
	"github.com/BioHazard786/Warpcall/cli/internal/webrtc"
)

var (
	ErrInvalidCode  = errors.New("invalid room code")
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
	ErrServerGone   = errors.New("signaling server closed the connection")
	ErrTimeout      = errors.New("timeout")
	ErrRejected     = errors.New("server rejected the request")
)

type CallError struct {
	Op      string
	Err     error
	Details string
}

func (e *CallError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *CallError {
	return &CallError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *CallError {
	return &CallError{Op: op, Err: err, Details: details}
}

// joinError maps a join_result error code to its sentinel.
func joinError(code string) error {
	switch code {
	case signaling.ErrorInvalidCode:
		return ErrInvalidCode
	case signaling.ErrorRoomNotFound:
		return ErrRoomNotFound
	case signaling.ErrorRoomFull:
		return ErrRoomFull
	default:
		return fmt.Errorf("join rejected: %s", code)
	}
}

// UserMessage turns err into the line shown to the user.
func UserMessage(err error) string {
	var devErr *webrtc.DeviceError
	switch {
	case errors.Is(err, ErrInvalidCode):
		return "Room code must be 6 characters a-z0-9"
	case errors.Is(err, ErrRoomNotFound):
		return "No room with that code. Check it or ask for a new one"
	case errors.Is(err, ErrRoomFull):
		return "That room already has two participants"
	case errors.Is(err, ErrServerGone):
		return "Lost connection to the signaling server"
	case errors.As(err, &devErr):
		return fmt.Sprintf("Cannot start the %s: %v", devErr.Device, devErr.Err)
	default:
		return err.Error()
	}
}

func PrintErr(err error) {
	ui.PrintError(UserMessage(err))
}
