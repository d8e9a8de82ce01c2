// Package errors defines the coded error taxonomy shared by the library,
// importer, reader and HTTP layers.
//
// Domain code returns these values; controllers map them to HTTP statuses:
//
//	if errors.Is(err, errors.ErrDuplicateBook) {
//	    // 409
//	}
//
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    c.JSON(domainErr.HTTPStatus(), ...)
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

const (
	CodeDuplicateBook      Code = "DUPLICATE_BOOK"
	CodeNotAuthenticated   Code = "NOT_AUTHENTICATED"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
	CodeUnsupportedFormat  Code = "UNSUPPORTED_FORMAT"
	CodeCorruptDocument    Code = "CORRUPT_DOCUMENT"
	CodeIO                 Code = "IO_ERROR"
	CodeInvalidLocation    Code = "INVALID_LOCATION"
	CodeSessionClosed      Code = "SESSION_CLOSED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeValidation         Code = "VALIDATION"
	CodeInternal           Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeDuplicateBook, CodeSessionClosed:
		return http.StatusConflict
	case CodeNotAuthenticated:
		return http.StatusUnauthorized
	case CodePersistenceFailure:
		return http.StatusServiceUnavailable
	case CodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case CodeCorruptDocument, CodeInvalidLocation:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// Sentinel errors for use with errors.Is().
var (
	ErrDuplicateBook      = &Error{Code: CodeDuplicateBook, Message: "a book with this title and author already exists"}
	ErrNotAuthenticated   = &Error{Code: CodeNotAuthenticated, Message: "authentication required"}
	ErrPersistenceFailure = &Error{Code: CodePersistenceFailure, Message: "persistence failure"}
	ErrUnsupportedFormat  = &Error{Code: CodeUnsupportedFormat, Message: "unsupported format"}
	ErrCorruptDocument    = &Error{Code: CodeCorruptDocument, Message: "corrupt document"}
	ErrIO                 = &Error{Code: CodeIO, Message: "i/o error"}
	ErrInvalidLocation    = &Error{Code: CodeInvalidLocation, Message: "invalid location"}
	ErrSessionClosed      = &Error{Code: CodeSessionClosed, Message: "reading session closed"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// DuplicateBook names the conflicting title and author.
func DuplicateBook(title, author string) *Error {
	return &Error{
		Code:    CodeDuplicateBook,
		Message: fmt.Sprintf("book %q by %q already exists", title, author),
	}
}

// InvalidLocationf creates an invalid location error with formatted message.
func InvalidLocationf(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidLocation, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// Persistence wraps a backend failure. Already-coded errors pass through so a
// repository can report NotAuthenticated or NotFound precisely.
func Persistence(err error, op string) error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		return err
	}
	return &Error{Code: CodePersistenceFailure, Message: op, cause: err}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}
