package domain

import (
	"errors"
	"fmt"
)

var (
	ErrChannelNotFound    = errors.New("channel not found")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrTrustLimitExceeded = errors.New("trust list full")
	ErrUserNotInChannel   = errors.New("user not in channel")
	ErrOwnerPresent       = errors.New("current owner is present")
)

// GatewayError wraps a failed platform call with the operation and channel
// it was issued for.
type GatewayError struct {
	Op      string
	Channel ChannelID
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("gateway %s failed for channel %s: %v", e.Op, e.Channel, e.Err)
	}
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func NewGatewayError(op string, channel ChannelID, err error) *GatewayError {
	return &GatewayError{Op: op, Channel: channel, Err: err}
}

// IsGatewayError reports whether err originated from a platform call.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
