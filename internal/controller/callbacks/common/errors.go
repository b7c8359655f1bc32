package common

import (
	"errors"

	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrNotABooker   = errors.New("user cannot book sessions")
	ErrNotAStudent  = errors.New("user is not a student")
	ErrNoMessage    = errors.New("no message in callback")
	ErrNoDraft      = errors.New("no booking in progress")
)

// ErrorMessage returns the text shown to the user for err.
func ErrorMessage(err error) string {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return "❌ " + verr.Message
	case errors.Is(err, ErrUserNotFound):
		return "❌ User not found. Send /start first"
	case errors.Is(err, ErrNotABooker):
		return "❌ Only professors can book the studio"
	case errors.Is(err, ErrNotAStudent):
		return "❌ This is only available to students"
	case errors.Is(err, ErrNoMessage):
		return "❌ Could not process the message"
	case errors.Is(err, ErrNoDraft):
		return "⌛ This booking has expired. Start again with /book"
	case errors.Is(err, callbacktypes.ErrInvalidFormat):
		return "❌ Invalid button data"
	case errors.Is(err, service.ErrForbidden):
		return "❌ You are not allowed to do that"
	case errors.Is(err, service.ErrSessionNotFound):
		return "❌ Session not found"
	case errors.Is(err, service.ErrNotInvited):
		return "❌ You are not invited to this session"
	case errors.Is(err, service.ErrSessionCanceled):
		return "❌ This session was canceled"
	case errors.Is(err, service.ErrSessionCompleted):
		return "❌ This session already took place"
	case errors.Is(err, service.ErrAlreadyResponded):
		return "ℹ️ You already answered this invitation"
	case errors.Is(err, service.ErrSlotBooked):
		return "🔴 That slot was just booked. Pick another one"
	case errors.Is(err, service.ErrUnknownStudio):
		return "❌ Unknown studio"
	case errors.Is(err, service.ErrUserNotFound):
		return "❌ Student not found"
	default:
		return "❌ Something went wrong. Try again later"
	}
}
