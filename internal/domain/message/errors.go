package message

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a status change would move backwards or leave a terminal state
type ErrInvalidTransition struct {
	MessageID string
	From      Status
	To        Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition for message %s: %s -> %s", e.MessageID, e.From, e.To)
}

func (e ErrInvalidTransition) Is(target error) bool {
	_, ok := target.(ErrInvalidTransition)
	return ok
}

// ErrInvalidSendRequest is returned by Send for malformed requests
type ErrInvalidSendRequest struct {
	Reason string
}

func (e ErrInvalidSendRequest) Error() string {
	return "invalid send request: " + e.Reason
}

func (e ErrInvalidSendRequest) Is(target error) bool {
	_, ok := target.(ErrInvalidSendRequest)
	return ok
}

// ErrorKind lets callers branch on why a handler failed
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindState      ErrorKind = "state"
	ErrorKindNotFound   ErrorKind = "not_found"
	ErrorKindConflict   ErrorKind = "conflict"
	ErrorKindStore      ErrorKind = "store"
	ErrorKindHandler    ErrorKind = "handler"
)

// HandlerError is the typed failure a handler returns to the dispatcher
type HandlerError struct {
	Kind    ErrorKind
	Err     error
	Details map[string]any // added to the FAILED response next to error and errorKind
}

// NewHandlerError wraps err with kind
func NewHandlerError(kind ErrorKind, err error) *HandlerError {
	return &HandlerError{Kind: kind, Err: err}
}

// WithDetails attaches response fields for the FAILED message
func (e *HandlerError) WithDetails(details map[string]any) *HandlerError {
	e.Details = details
	return e
}

func (e *HandlerError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind carried by a HandlerError in err's chain, or ErrorKindHandler
func KindOf(err error) ErrorKind {
	var he *HandlerError
	if errors.As(err, &he) && he.Kind != "" {
		return he.Kind
	}
	return ErrorKindHandler
}

// DetailsOf returns the details carried by a HandlerError in err's chain
func DetailsOf(err error) map[string]any {
	var he *HandlerError
	if errors.As(err, &he) {
		return he.Details
	}
	return nil
}
