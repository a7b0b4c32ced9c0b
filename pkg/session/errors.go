package session

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalState = errors.New("illegal state")
	ErrBusy         = errors.New("an upload is still in progress")
	ErrDisposed     = errors.New("session disposed")
)

// IllegalStateError is returned for commands which are not allowed in the
// current status. The session is left untouched.
type IllegalStateError struct {
	Command string
	Status  Status
	Reason  string
}

func (this *IllegalStateError) Error() string {
	if this.Reason != "" {
		return fmt.Sprintf("cannot %s while %v: %s", this.Command, this.Status, this.Reason)
	}
	return fmt.Sprintf("cannot %s while %v", this.Command, this.Status)
}

func (this *IllegalStateError) Is(target error) bool {
	return target == ErrIllegalState
}
