package audio

import (
	"errors"
	"fmt"
)

var (
	ErrStaleHandle          = errors.New("stale handle")
	ErrDeviceUnavailable    = errors.New("device unavailable")
	ErrDeviceBusy           = errors.New("device busy")
	ErrUnsupportedContainer = errors.New("unsupported container format")
	ErrNotInitialized       = errors.New("not initialized")
)

// DeviceError reports a failed capture or playback device operation.
type DeviceError struct {
	Op  string
	Err error
}

func (this *DeviceError) Error() string {
	return fmt.Sprintf("cannot %s: %v", this.Op, this.Err)
}

func (this *DeviceError) Unwrap() error {
	return this.Err
}

func deviceErrorf(op string, err error, args ...any) error {
	if len(args) > 0 {
		err = fmt.Errorf("%w: %s", err, fmt.Sprint(args...))
	}
	return &DeviceError{Op: op, Err: err}
}

type PermissionError struct {
	Permission string
}

func (this *PermissionError) Error() string {
	return fmt.Sprintf("permission %q not granted", this.Permission)
}

const (
	PermissionMicrophone   = "microphone"
	PermissionMediaLibrary = "media-library"
)
