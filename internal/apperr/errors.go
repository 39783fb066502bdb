// Package apperr defines the error taxonomy shared by the services and the
// HTTP layer. Handlers match these with errors.As / errors.Is and translate
// them into status codes; services never return raw repository sentinels.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a reservation, table, waitlist entry or
// override does not exist (or, for self-service, when the code/phone pair
// does not authenticate).
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Invalid is shorthand for a *ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Availability reasons.
const (
	ReasonClosed     = "closed"
	ReasonPastClose  = "past_close"
	ReasonCovers     = "covers"
	ReasonNoTable    = "no_table"
	ReasonPast       = "past"
	ReasonTableTaken = "table_taken"
	ReasonCapacity   = "capacity"
)

// AvailabilityError reports that a requested slot or table cannot be used.
type AvailabilityError struct {
	Date      string
	Time      string
	PartySize int
	Reason    string
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("slot %s %s unavailable for party of %d: %s", e.Date, e.Time, e.PartySize, e.Reason)
}

// ConflictError reports an illegal transition or a concurrent write that
// observed a different status than the one it expected.
type ConflictError struct {
	Current   string
	Requested string
	Reason    string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("cannot move reservation from %s to %s", e.Current, e.Requested)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// CutoffError is returned when a guest tries to change a booking inside the
// self-service cutoff window. It carries the restaurant's contact details.
type CutoffError struct {
	Deadline    time.Time
	CutoffHours int
	Phone       string
	Email       string
}

func (e *CutoffError) Error() string {
	return fmt.Sprintf("changes must be made at least %d hours before the reservation", e.CutoffHours)
}

// ExternalSyncError wraps a POS adapter failure.
type ExternalSyncError struct {
	Adapter string
	Err     error
}

func (e *ExternalSyncError) Error() string {
	return fmt.Sprintf("pos sync via %s failed: %v", e.Adapter, e.Err)
}

func (e *ExternalSyncError) Unwrap() error { return e.Err }
