// Package apperr defines the error-kind taxonomy shared by every core
// component. Callers switch on Kind, never on the message text.
package apperr

import "fmt"

// Kind is one of the error categories the core can surface. It deliberately
// has no notion of HTTP status — that mapping is the controller's job.
type Kind string

const (
	InvalidArgument   Kind = "invalid_argument"
	NotFound          Kind = "not_found"
	FailedPrecondition Kind = "failed_precondition"
	Unavailable       Kind = "unavailable"
	DeadlineExceeded  Kind = "deadline_exceeded"
	Cancelled         Kind = "cancelled"
	Internal          Kind = "internal"
)

// Error is a structured application error carrying a Kind and a cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func new_(k Kind, msg string) *Error { return &Error{Kind: k, Message: msg} }

func InvalidArgumentf(format string, args ...interface{}) *Error {
	return new_(InvalidArgument, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...interface{}) *Error {
	return new_(NotFound, fmt.Sprintf(format, args...))
}

func FailedPreconditionf(format string, args ...interface{}) *Error {
	return new_(FailedPrecondition, fmt.Sprintf(format, args...))
}

func Unavailablef(format string, args ...interface{}) *Error {
	return new_(Unavailable, fmt.Sprintf(format, args...))
}

// Wrap annotates cause with a Kind, preserving it for errors.Unwrap/Is.
func Wrap(k Kind, msg string, cause error) *Error {
	return &Error{Kind: k, Message: msg, Cause: cause}
}

func DeadlineExceededf(format string, args ...interface{}) *Error {
	return new_(DeadlineExceeded, fmt.Sprintf(format, args...))
}

func Cancelledf(format string, args ...interface{}) *Error {
	return new_(Cancelled, fmt.Sprintf(format, args...))
}

func Internalf(format string, args ...interface{}) *Error {
	return new_(Internal, fmt.Sprintf(format, args...))
}

// KindOf extracts the Kind of err, defaulting to Internal for plain errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if ae, ok := err.(*Error); ok {
		return ae.Kind
	}
	return Internal
}
