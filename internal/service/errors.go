package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrForbidden        = errors.New("action not allowed for this user")
	ErrSessionNotFound  = errors.New("session not found")
	ErrNotInvited       = errors.New("student is not invited to this session")
	ErrSessionCanceled  = errors.New("session is canceled")
	ErrSessionCompleted = errors.New("session is completed")
	ErrAlreadyResponded = errors.New("student already responded")
	ErrSlotBooked       = errors.New("slot is already booked")
	ErrUnknownStudio    = errors.New("unknown studio")
	ErrUserNotFound     = errors.New("user not found")
)

// ValidationError describes one rejected input field. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
