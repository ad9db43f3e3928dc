package device

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for the device package, checked with errors.Is().
var (
	// ErrDeviceNotFound is returned when a device name is not configured.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrUnknownAction is returned when an action is outside the
	// device's capability set. The concrete error is always an
	// *UnknownActionError carrying the allowed set.
	ErrUnknownAction = errors.New("device: unknown action")

	// ErrValidation is returned when an action payload fails validation.
	// Nothing has been published or persisted when this is returned.
	ErrValidation = errors.New("device: validation failed")

	// ErrMissingAction is returned when an inbound button event carries
	// no action field.
	ErrMissingAction = errors.New("device: payload missing action")
)

// UnknownActionError reports a dispatch attempt outside the capability
// set. Allowed enumerates the device's full action set so callers can
// surface it to the client.
type UnknownActionError struct {
	Action  string
	Allowed []string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("device: action %q not allowed (allowed: %s)",
		e.Action, strings.Join(e.Allowed, ", "))
}

// Unwrap makes errors.Is(err, ErrUnknownAction) work.
func (e *UnknownActionError) Unwrap() error {
	return ErrUnknownAction
}
