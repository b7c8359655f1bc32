// Package callbacktypes defines the inline-button payloads shared by the
// keyboards that emit them and the router that dispatches them.
package callbacktypes

import (
	"errors"
	"strings"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
)

// Telegram limits callback data to 64 bytes, session ids are 36.
const (
	Noop = "noop"

	Respond        = "respond:"         // respond:<session_id>:confirmed|declined
	ViewSession    = "view_session:"    // view_session:<session_id>
	CancelSession  = "cancel_session:"  // cancel_session:<session_id>
	CancelNoReason = "cancel_noreason:" // cancel_noreason:<session_id>
	CancelKeep     = "cancel_keep"

	BookStudio       = "book_studio:"         // book_studio:<studio_id>
	BookWeek         = "book_week:"           // book_week:<monday YYYY-MM-DD>
	BookDay          = "book_day:"            // book_day:<YYYY-MM-DD>
	BookSlot         = "book_slot:"           // book_slot:<YYYY-MM-DD>:<HH:MM>
	BookImage        = "book_image"           // week PNG of the current draft
	BookStudent      = "book_student:"        // book_student:<user_id>
	BookStudentsPage = "book_students_page:"  // book_students_page:<page>
	BookSearch       = "book_search"
	BookClearSearch  = "book_clear_search"
	BookStudents     = "book_students"
	BookConfirm      = "book_confirm"
	BookSubmit       = "book_submit"
	BookBackStudios  = "book_back_studios"
	BookBackWeek     = "book_back_week"
	BookAbort        = "book_abort"
)

var ErrInvalidFormat = errors.New("invalid callback format")

// Suffix strips a prefix and rejects empty payloads.
func Suffix(data, prefix string) (string, error) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok || rest == "" {
		return "", ErrInvalidFormat
	}
	return rest, nil
}

// ParseRespond splits respond:<session_id>:<status>.
func ParseRespond(data string) (string, model.ResponseStatus, error) {
	rest, err := Suffix(data, Respond)
	if err != nil {
		return "", "", err
	}
	idx := strings.LastIndexByte(rest, ':')
	if idx <= 0 {
		return "", "", ErrInvalidFormat
	}
	status := model.ResponseStatus(rest[idx+1:])
	if !status.IsAnswer() {
		return "", "", ErrInvalidFormat
	}
	return rest[:idx], status, nil
}

// ParseSlot splits book_slot:<date>:<time>. The time itself contains a colon.
func ParseSlot(data string) (string, string, error) {
	rest, err := Suffix(data, BookSlot)
	if err != nil {
		return "", "", err
	}
	date, slot, ok := strings.Cut(rest, ":")
	if !ok || date == "" || !model.IsSlotTime(slot) {
		return "", "", ErrInvalidFormat
	}
	return date, slot, nil
}

func RespondData(sessionID string, status model.ResponseStatus) string {
	return Respond + sessionID + ":" + string(status)
}

func SlotData(date, slot string) string {
	return BookSlot + date + ":" + slot
}
