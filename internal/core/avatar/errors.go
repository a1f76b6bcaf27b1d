package avatar

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownSlot is returned when a slot name is not registered on the avatar.
	ErrUnknownSlot = errors.New("unknown slot")
	// ErrPassInFlight is returned when the slot set is mutated while a
	// parallel pass still references it.
	ErrPassInFlight = errors.New("post-process pass in flight")
)

// UnknownSlotError reports an access to an unregistered slot.
// It matches ErrUnknownSlot with errors.Is.
type UnknownSlotError struct {
	Avatar string
	Slot   string
}

func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("avatar %q: %s %q", e.Avatar, ErrUnknownSlot, e.Slot)
}

func (e *UnknownSlotError) Unwrap() error {
	return ErrUnknownSlot
}
