package upload

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransportError is returned if no HTTP response was received at all.
type TransportError struct {
	Url string
	Err error
}

func (this *TransportError) Error() string {
	return fmt.Sprintf("cannot upload to %s: %v", this.Url, this.Err)
}

func (this *TransportError) Unwrap() error {
	return this.Err
}

func (this *TransportError) Timeout() bool {
	if errors.Is(this.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(this.Err, &ne) && ne.Timeout()
}

// ServerError describes a response which was received but did not carry a
// usable result.
type ServerError struct {
	StatusCode int
	Body       string
}

func (this *ServerError) Error() string {
	return fmt.Sprintf("unexpected response: %d - %s", this.StatusCode, this.Body)
}
