package approval

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the referenced request does not exist
	ErrNotFound = errors.New("request not found")

	// ErrNotAuthorized is returned when the actor is not a member of the authoritative tier
	ErrNotAuthorized = errors.New("not authorized")

	// ErrOutOfOrder is returned when the actor belongs to a tier that is not yet, or no longer, authoritative
	ErrOutOfOrder = fmt.Errorf("%w: out of order", ErrNotAuthorized)

	// ErrInvalidAction is returned for terminal requests and inconsistent stored state
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvalidStatus is returned when a stored status cannot be recognized
	ErrInvalidStatus = fmt.Errorf("%w: unrecognized status", ErrInvalidAction)

	// ErrNoApprovers is returned when a request is created without any approving tier
	ErrNoApprovers = errors.New("no approvers assigned")

	// ErrInvalidInput is returned for malformed commands
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownAction is returned for actions other than approve or reject
	ErrUnknownAction = fmt.Errorf("%w: unknown action", ErrInvalidInput)
)
