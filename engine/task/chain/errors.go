package chain

import (
	"errors"
	"fmt"

	"github.com/mpdriver/mpdriver/engine/task"
)

// Cause names why a batch was rejected. Every cause is user-correctable.
type Cause string

const (
	CauseNoTaskForUser       Cause = "NoTaskForUser"
	CauseProhibitedStatus    Cause = "ProhibitedStatus"
	CauseMissingCancelReason Cause = "MissingCancelReason"
	CauseChainFailed         Cause = "ChainFailed"
)

// RejectedError aborts a whole batch before anything is persisted.
type RejectedError struct {
	Cause    Cause
	EntityID int64
	Status   task.Status
	Rule     string
}

func (e *RejectedError) Error() string {
	msg := fmt.Sprintf("status batch rejected: %s", e.Cause)
	if e.EntityID != 0 {
		msg += fmt.Sprintf(": entity %d", e.EntityID)
	}
	if e.Status != "" {
		msg += fmt.Sprintf(" (%s)", e.Status)
	}
	if e.Rule != "" {
		msg += ": " + e.Rule
	}
	return msg
}

// Is matches another RejectedError with the same cause.
func (e *RejectedError) Is(target error) bool {
	t, ok := target.(*RejectedError)
	return ok && t.Cause == e.Cause
}

// Sentinels for errors.Is checks against a cause.
var (
	ErrNoTaskForUser       = &RejectedError{Cause: CauseNoTaskForUser}
	ErrProhibitedStatus    = &RejectedError{Cause: CauseProhibitedStatus}
	ErrMissingCancelReason = &RejectedError{Cause: CauseMissingCancelReason}
	ErrChainFailed         = &RejectedError{Cause: CauseChainFailed}
)

// CauseOf extracts the rejection cause from err.
func CauseOf(err error) (Cause, bool) {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Cause, true
	}
	return "", false
}

func reject(cause Cause, tr Transition, rule string) *RejectedError {
	return &RejectedError{Cause: cause, EntityID: tr.EntityID, Status: tr.Status, Rule: rule}
}
