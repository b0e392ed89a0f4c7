// Package domain defines the error taxonomy shared by the registration and
// check-in services. Conflict and contention errors are expected outcomes
// under concurrent kiosk load, not system failures; HTTP handlers map them
// with errors.Is / errors.As so callers see one consistent error regardless
// of which layer caught a race.
package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation covers malformed or missing required input.
	ErrValidation = errors.New("validation failed")

	// ErrRegistrationClosed is returned when now is outside the
	// exhibition's registration window or the exhibition is not published.
	ErrRegistrationClosed = errors.New("registration window closed")

	// ErrInvalidPricing is returned for an unknown, inactive or expired
	// pricing tier, or for a day selection the tier does not price.
	ErrInvalidPricing = errors.New("invalid pricing selection")

	// ErrAlreadyRegistered is the conflict for a duplicate
	// (visitor, exhibition) pair, whether caught by the pre-check or by
	// the unique index on insert.
	ErrAlreadyRegistered = errors.New("visitor already registered for this exhibition")

	// ErrDuplicatePhone is the conflict for two concurrent visitor
	// creations racing on the same new phone number.
	ErrDuplicatePhone = errors.New("a visitor with this phone already exists")

	// ErrNotFound covers missing registrations, visitors and exhibitions.
	ErrNotFound = errors.New("not found")

	// ErrCancelled rejects check-in for a cancelled registration.
	ErrCancelled = errors.New("registration is cancelled")

	// ErrAlreadyCheckedIn rejects a repeat check-in. Use AsAlreadyCheckedIn
	// to recover the winning timestamp.
	ErrAlreadyCheckedIn = errors.New("already checked in")

	// ErrLockContention is a transient rejection: another kiosk holds the
	// check-in lock for this registration. Callers should retry shortly.
	ErrLockContention = errors.New("check-in in progress, try again shortly")
)

// AlreadyCheckedInError carries the timestamp of the check-in that won.
type AlreadyCheckedInError struct {
	At time.Time
}

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("already checked in at %s", e.At.Format(time.RFC3339))
}

func (e *AlreadyCheckedInError) Is(target error) bool {
	return target == ErrAlreadyCheckedIn
}

// AsAlreadyCheckedIn extracts the winning check-in time from err, if any.
func AsAlreadyCheckedIn(err error) (*AlreadyCheckedInError, bool) {
	var ace *AlreadyCheckedInError
	if errors.As(err, &ace) {
		return ace, true
	}
	return nil, false
}

// Validationf wraps ErrValidation with a precise reason.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}
