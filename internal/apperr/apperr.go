// Package apperr holds the error kinds the booking engine reports. Every
// rejected operation returns one of these so callers can tell, for example,
// "limit reached" apart from "already pending".
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindDuplicateEmail          Kind = "DuplicateEmail"
	KindInvalidCredentials      Kind = "InvalidCredentials"
	KindForbidden               Kind = "Forbidden"
	KindNotFound                Kind = "NotFound"
	KindDailyLimitExceeded      Kind = "DailyLimitExceeded"
	KindDuplicatePendingRequest Kind = "DuplicatePendingRequest"
	KindInvalidTransition       Kind = "InvalidTransition"
	KindNotVerified             Kind = "NotVerified"
	KindAlreadyRated            Kind = "AlreadyRated"
	KindNotRateable             Kind = "NotRateable"
	KindInvalidRating           Kind = "InvalidRating"
	KindValidation              Kind = "Validation"
	KindServiceUnavailable      Kind = "ServiceUnavailable"
)

// Error is a classified engine error. Two errors match under errors.Is when
// their kinds are equal, so callers compare against the sentinels below.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrDuplicateEmail          = &Error{Kind: KindDuplicateEmail, Message: "email is already registered"}
	ErrInvalidCredentials      = &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
	ErrForbidden               = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound                = &Error{Kind: KindNotFound, Message: "not found"}
	ErrDailyLimitExceeded      = &Error{Kind: KindDailyLimitExceeded, Message: "daily request limit reached for this professional"}
	ErrDuplicatePendingRequest = &Error{Kind: KindDuplicatePendingRequest, Message: "you already have an open request with this professional"}
	ErrInvalidTransition       = &Error{Kind: KindInvalidTransition, Message: "booking cannot move to the requested status"}
	ErrNotVerified             = &Error{Kind: KindNotVerified, Message: "professional is not verified"}
	ErrAlreadyRated            = &Error{Kind: KindAlreadyRated, Message: "booking has already been rated"}
	ErrNotRateable             = &Error{Kind: KindNotRateable, Message: "booking cannot be rated yet"}
	ErrInvalidRating           = &Error{Kind: KindInvalidRating, Message: "rating must be an integer from 1 to 5"}
	ErrValidation              = &Error{Kind: KindValidation, Message: "validation error"}
	ErrServiceUnavailable      = &Error{Kind: KindServiceUnavailable, Message: "service temporarily unavailable"}
)

// New returns an error of the given kind with a caller specific message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies a lower level error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation builds a KindValidation error carrying per-field messages.
func Validation(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation error", Fields: fields}
}

// KindOf reports the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsClassified reports whether err carries a Kind.
func IsClassified(err error) bool {
	return KindOf(err) != ""
}

// FieldErrors collects validation messages per input field.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Err returns nil when no field failed.
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return Validation(e)
}
