package webrtc

import (
	"errors"
	"fmt"
)

var (
	ErrNotStarted = errors.New("local media not started")
	ErrStopped    = errors.New("supervisor stopped")
	ErrNoDevice   = errors.New("no source configured")
)

// DeviceError reports that local media could not be acquired. Nothing is
// held when it is returned.
type DeviceError struct {
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s device: %v", e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
