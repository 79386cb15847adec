// Package failure defines the error taxonomy shared by every stage of an
// inventory batch.
//
// Errors fall in two groups:
//   - Fatal: VALIDATION and SESSION abort the batch before any item is touched.
//   - Per-item: NOT_FOUND, CONFLICT, REJECTED, TRANSPORT and
//     UNRECOGNIZED_RESPONSE are captured into the failure list and never stop
//     the remaining items.
package failure

import (
	"errors"
	"fmt"
)

// Code categorizes a batch error.
type Code string

const (
	// CodeValidation indicates empty or malformed input.
	CodeValidation Code = "VALIDATION"

	// CodeSession indicates the session could not be established.
	CodeSession Code = "SESSION"

	// CodeNotFound indicates the item identifier is unknown to the store.
	CodeNotFound Code = "NOT_FOUND"

	// CodeConflict indicates the concurrency token no longer matched.
	CodeConflict Code = "CONFLICT"

	// CodeRejected indicates any other non-zero status from the store.
	CodeRejected Code = "REJECTED"

	// CodeTransport indicates a communication fault mid-call.
	CodeTransport Code = "TRANSPORT"

	// CodeUnrecognizedResponse indicates a response without a parseable status.
	// It is handled exactly like CodeTransport.
	CodeUnrecognizedResponse Code = "UNRECOGNIZED_RESPONSE"
)

// Error is a classified batch error.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is the human-readable reason reported to the caller.
	Message string

	// ItemID identifies the affected item for per-item errors.
	ItemID string

	// Expected is the store's concurrency token (conflicts only).
	Expected string

	// Submitted is the concurrency token sent with the update (conflicts only).
	Submitted string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.ItemID != "" {
		return fmt.Sprintf("%s: %s (item=%s)", e.Code, msg, e.ItemID)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Reason is the text recorded in a failure list: the message plus the cause.
func (e *Error) Reason() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Fatal reports whether the error aborts the whole batch.
func (e *Error) Fatal() bool {
	return e.Code == CodeValidation || e.Code == CodeSession
}

// WithItem returns a copy of e attributed to itemID.
func (e *Error) WithItem(itemID string) *Error {
	c := *e
	c.ItemID = itemID
	return &c
}

// Validation creates a fatal input error.
func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Session creates a fatal session error.
func Session(message string, err error) *Error {
	return &Error{Code: CodeSession, Message: message, Err: err}
}

// NotFound creates a per-item error for an unknown identifier.
func NotFound(itemID string) *Error {
	return &Error{Code: CodeNotFound, Message: "not found", ItemID: itemID}
}

// Conflict creates a per-item error for a concurrency token mismatch.
// expected may be empty when the store did not report its current token.
func Conflict(itemID, expected, submitted string) *Error {
	msg := fmt.Sprintf("concurrency token mismatch: expected %s, submitted %s", expected, submitted)
	if expected == "" {
		msg = fmt.Sprintf("concurrency token mismatch: expected <unreported>, submitted %s", submitted)
	}
	return &Error{
		Code:      CodeConflict,
		Message:   msg,
		ItemID:    itemID,
		Expected:  expected,
		Submitted: submitted,
	}
}

// Rejected creates a per-item error carrying the store's message.
func Rejected(itemID, message string) *Error {
	return &Error{Code: CodeRejected, Message: message, ItemID: itemID}
}

// Transport creates a per-item error for a channel fault.
func Transport(itemID string, err error) *Error {
	return &Error{Code: CodeTransport, Message: "transport fault", ItemID: itemID, Err: err}
}

// Unrecognized creates an error for a response without a status field.
func Unrecognized(detail string) *Error {
	return &Error{Code: CodeUnrecognizedResponse, Message: "unrecognized response: " + detail}
}

// CodeOf extracts the code from err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsSession returns true if err is a session error.
func IsSession(err error) bool { return CodeOf(err) == CodeSession }

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsConflict returns true if err is a concurrency conflict.
// Callers may re-query and retry these manually on a later run.
func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }

// IsTransport returns true for transport faults and unrecognized responses.
func IsTransport(err error) bool {
	code := CodeOf(err)
	return code == CodeTransport || code == CodeUnrecognizedResponse
}

// IsFatal returns true if err aborts the batch.
func IsFatal(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Fatal()
	}
	return false
}
