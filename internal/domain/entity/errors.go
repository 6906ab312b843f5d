package entity

import (
	"errors"
	"fmt"
)

// Domain errors surfaced to callers as typed failures
var (
	ErrCheckNotFound    = errors.New("check not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrStationNotFound  = errors.New("station not found")

	// ErrCheckExpired is returned when redemption is attempted past the
	// expiry time. The check is lazily finalized to expired as a side effect.
	ErrCheckExpired = errors.New("check has expired")

	// ErrNotAuthorized is returned when a phone-bound check is redeemed by
	// an account whose phone does not match the binding.
	ErrNotAuthorized = errors.New("check belongs to a different phone number")

	// ErrConflict is returned on unique-constraint violations: duplicate
	// check code on create or duplicate username/phone on customer create.
	ErrConflict = errors.New("duplicate value for unique field")

	// ErrNoLinkedCustomer is returned when reactivation is attempted on a
	// check that never got linked to a customer.
	ErrNoLinkedCustomer = errors.New("check has no linked customer")

	// ErrInvalidState is the sentinel matched by InvalidStateError
	ErrInvalidState = errors.New("check is not pending")
)

// InvalidStateError reports an illegal transition attempt with a
// human-readable reason derived from the blocking status.
type InvalidStateError struct {
	Status CheckStatus
}

func (e *InvalidStateError) Error() string {
	switch e.Status {
	case CheckStatusUsed:
		return "check has already been used"
	case CheckStatusExpired:
		return "check has expired and can no longer be used"
	case CheckStatusCancelled:
		return "check was cancelled"
	default:
		return fmt.Sprintf("check is in state %q", e.Status)
	}
}

// Is lets errors.Is match InvalidStateError against ErrInvalidState
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}
