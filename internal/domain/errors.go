package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrParticipantNotFound is returned when a participant id does not resolve.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrParticipationNotFound is returned when no ledger row exists for a (participant, quiz) pair.
	ErrParticipationNotFound = errors.New("participation not found")
	// ErrParticipationExists signals a lost create race on the (participant, quiz) unique key.
	ErrParticipationExists = errors.New("participation already exists")
	// ErrAccountNotFound is returned when an account id does not resolve.
	ErrAccountNotFound = errors.New("account not found")
	// ErrUserNotFound is returned when an account user does not resolve.
	ErrUserNotFound = errors.New("account user not found")
	// ErrEmailTaken signals a unique email violation for registered identities.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvitationExists signals a duplicate (quiz, email) invitation.
	ErrInvitationExists = errors.New("invitation already exists")
	// ErrInvitationNotFound is returned when deactivating an unknown invitation.
	ErrInvitationNotFound = errors.New("invitation not found")
	// ErrInvalidToken covers bad signatures, expiry and wrong credential classes.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked is returned for tokens on the denylist.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrAlreadySubmitted rejects a second submission for a completed participation.
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	// ErrTimeLimitExceeded rejects a submission that arrived after the quiz time limit.
	ErrTimeLimitExceeded = errors.New("quiz time limit exceeded")
)

// Kind classifies errors for the transport layer.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation"
	KindInternal     Kind = "internal"
)

// Error is a classified error with an optional remediation action.
type Error struct {
	Kind    Kind
	Action  Action
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string, err error) error     { return &Error{Kind: KindNotFound, Message: msg, Err: err} }
func Unauthorized(msg string, err error) error { return &Error{Kind: KindUnauthorized, Message: msg, Err: err} }
func Conflict(msg string, err error) error     { return &Error{Kind: KindConflict, Message: msg, Err: err} }
func Invalid(msg string) error                 { return &Error{Kind: KindValidation, Message: msg} }

// Forbidden builds a denial error; action may be empty.
func Forbidden(action Action, msg string) error {
	return &Error{Kind: KindForbidden, Action: action, Message: msg}
}

// KindOf resolves the classification of err.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	switch {
	case errors.Is(err, ErrQuizNotFound),
		errors.Is(err, ErrParticipantNotFound),
		errors.Is(err, ErrParticipationNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrInvitationNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenRevoked):
		return KindUnauthorized
	case errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrAlreadySubmitted),
		errors.Is(err, ErrParticipationExists),
		errors.Is(err, ErrInvitationExists):
		return KindConflict
	case errors.Is(err, ErrTimeLimitExceeded):
		return KindForbidden
	}
	return KindInternal
}

// ActionOf returns the remediation action carried by err, if any.
func ActionOf(err error) Action {
	var de *Error
	if errors.As(err, &de) {
		return de.Action
	}
	return ""
}
