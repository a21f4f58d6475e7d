package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("not authorized")
	ErrInvalidState        = errors.New("invalid room state")
	ErrCapacity            = errors.New("room is full")
	ErrConflict            = errors.New("conflict")
	ErrInsufficientPlayers = errors.New("not enough players")
	ErrNoContent           = errors.New("no questions available")
	ErrCodesExhausted      = errors.New("room codes exhausted")
	ErrDatabase            = errors.New("database error")
	ErrServer              = errors.New("server error")
)

// Error is the single error type returned by the service layer. Kind is one of the
// sentinels above, Message is safe to show to a client, Err is the underlying cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...any) *Error {
	return newError(ErrValidation, format, args...)
}

func databaseError(op string, err error) *Error {
	return &Error{Kind: ErrDatabase, Message: op, Err: err}
}

func serverError(op string, err error) *Error {
	return &Error{Kind: ErrServer, Message: op, Err: err}
}

// Internal reports whether err is one of the kinds that must not be shown to clients verbatim.
func Internal(err error) bool {
	return errors.Is(err, ErrDatabase) || errors.Is(err, ErrServer) || errors.Is(err, ErrCodesExhausted)
}
