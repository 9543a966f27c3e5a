package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by ledger-mutating and sync operations.
var (
	// ErrInvalidOrderInput is returned for a malformed cart, quantity, price or rate.
	ErrInvalidOrderInput = errors.New("invalid order input")

	// ErrUnknownProduct is returned when a product id does not exist in the catalog.
	ErrUnknownProduct = errors.New("unknown product")

	// ErrInsufficientStock is returned when a sale would drive stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrUnresolvedSku is returned when a pending purchase has lines that link to no product.
	ErrUnresolvedSku = errors.New("unresolved SKU")

	// ErrPermissionDenied is returned when the actor role may not perform the operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrSyncUnavailable is returned when no remote store is configured or cloud mode is off.
	ErrSyncUnavailable = errors.New("sync unavailable")

	// ErrSyncFailed is returned when the remote store rejects or fails a request.
	ErrSyncFailed = errors.New("sync failed")

	ErrOrderNotFound    = errors.New("order not found")
	ErrPurchaseNotFound = errors.New("purchase order not found")
	ErrMappingNotFound  = errors.New("mapping not found")

	// ErrInvalidTransition is returned when a purchase is not in a state that allows the operation.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Error wraps a kind with the failing operation and the offending subjects
// (SKUs, field names, ids) so callers can tell the user what is at fault.
type Error struct {
	// Op is the operation that failed (e.g. "CreateOrder").
	Op string

	// Err is the underlying kind or cause.
	Err error

	// Details is free text context.
	Details string

	// Subjects lists the SKUs, fields or ids at fault.
	Subjects []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if len(e.Subjects) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Subjects, ", "))
	}
	if e.Details != "" {
		b.WriteString(": ")
		b.WriteString(e.Details)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// New creates an Error for op.
func New(op string, err error, details string, subjects ...string) *Error {
	return &Error{
		Op:       op,
		Err:      err,
		Details:  details,
		Subjects: subjects,
	}
}

// Wrap wraps err as an Error unless it already is one.
func Wrap(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}

	return New(op, err, details)
}

// Subjects returns the subjects attached to err, if any.
func Subjects(err error) []string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Subjects
	}
	return nil
}
