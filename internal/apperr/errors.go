// Package apperr defines the operational errors the auth core returns. They
// carry a stable classification and a message that is safe to show a caller.
// Any error that is not an *Error is treated as an internal failure.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	MissingCredentials      Kind = "missing_credentials"
	InvalidCredentials      Kind = "invalid_credentials"
	Unauthenticated         Kind = "unauthenticated"
	StaleSession            Kind = "stale_session"
	InsufficientPermissions Kind = "insufficient_permissions"
	PasswordMismatch        Kind = "password_mismatch"
	InvalidOrExpiredToken   Kind = "invalid_or_expired_token"
	NotFound                Kind = "not_found"
	DispatchFailure         Kind = "dispatch_failure"
	InvalidInput            Kind = "invalid_input"
	EmailTaken              Kind = "email_taken"
)

func (k Kind) Status() int {
	switch k {
	case MissingCredentials, PasswordMismatch, InvalidOrExpiredToken, InvalidInput:
		return http.StatusBadRequest
	case InvalidCredentials, Unauthenticated, StaleSession:
		return http.StatusUnauthorized
	case InsufficientPermissions:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case EmailTaken:
		return http.StatusConflict
	case DispatchFailure:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, apperr.New(k, ""))
// works regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches an operational classification to an underlying cause. The
// cause is kept for logging and never shown to the caller.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func KindOf(err error) (Kind, bool) {
	appErr, ok := As(err)
	if !ok {
		return "", false
	}
	return appErr.Kind, true
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func IsOperational(err error) bool {
	_, ok := As(err)
	return ok
}

// Messages shown to callers. Login failures share one message whether the
// email is unknown or the password is wrong.
const (
	MsgMissingCredentials = "Please provide email and password!"
	MsgInvalidCredentials = "Incorrect email or password"
	MsgNotLoggedIn        = "You are not logged in! Please log in to get access."
	MsgInvalidSession     = "Invalid or expired session. Please log in again!"
	MsgSubjectGone        = "The user belonging to this token no longer exists."
	MsgStaleSession       = "User recently changed password! Please log in again."
	MsgForbidden          = "You do not have permission to perform this action"
	MsgPasswordMismatch   = "Passwords are not the same!"
	MsgWrongCurrent       = "Your current password is wrong."
	MsgResetTokenInvalid  = "Token is invalid or has expired"
	MsgNoUserWithEmail    = "There is no user with that email address."
	MsgDispatchFailure    = "There was an error sending the email. Try again later!"
	MsgEmailTaken         = "An account with that email already exists."
)
