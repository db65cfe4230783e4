package signaling

import "errors"

// Join errors, in the order JoinRoom checks them.
var (
	ErrInvalidCode  = errors.New("invalid room code")
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
)

// Wire codes carried in join_result.error and error.error.
const (
	CodeInvalidCode    = "invalid_code"
	CodeRoomNotFound   = "room_not_found"
	CodeRoomFull       = "room_full"
	CodeBadMessage     = "bad_message"
	CodeUnknownMessage = "unknown_message"
)

// Code maps a join error to its wire code. Unknown errors map to "internal".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCode):
		return CodeInvalidCode
	case errors.Is(err, ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, ErrRoomFull):
		return CodeRoomFull
	default:
		return "internal"
	}
}
