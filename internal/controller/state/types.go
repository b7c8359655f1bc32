package state

import (
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
)

// UserState is the dialog step a Telegram user is in.
type UserState string

const (
	StateNone UserState = ""

	// Booking dialog: the professor is typing a roster search.
	StateBookingStudentSearch UserState = "booking_student_search"

	// Cancellation: waiting for the reason text.
	StateCancelReason UserState = "cancel_reason"
)

// Data keys shared by the command and callback handlers.
const (
	KeyBooking         = "booking"
	KeyCancelSessionID = "cancel_session_id"
)

// UserData holds the dialog of one Telegram user.
type UserData struct {
	State     UserState
	Data      map[string]any
	UpdatedAt time.Time
}

// BookingDraft accumulates the /book dialog choices until confirmation.
type BookingDraft struct {
	StudioID   string
	WeekStart  time.Time
	Date       string
	Time       string
	StudentIDs []int64
	Search     string
	Page       int
}

// Toggle adds or removes a student from the selection.
func (d *BookingDraft) Toggle(studentID int64) {
	for i, id := range d.StudentIDs {
		if id == studentID {
			d.StudentIDs = append(d.StudentIDs[:i], d.StudentIDs[i+1:]...)
			return
		}
	}
	d.StudentIDs = append(d.StudentIDs, studentID)
}

func (d *BookingDraft) IsSelected(studentID int64) bool {
	for _, id := range d.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// HasSlot reports whether a day and time were picked.
func (d *BookingDraft) HasSlot() bool {
	return d.Date != "" && model.IsSlotTime(d.Time)
}
