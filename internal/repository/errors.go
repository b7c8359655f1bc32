package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/google/uuid"
)

// Store-level errors shared by every session store implementation.
var (
	ErrNotFound          = errors.New("session not found")
	ErrStudentNotInvited = errors.New("student is not invited to this session")
	ErrSlotTaken         = errors.New("studio slot already has an active session")
	ErrInvalidSession    = errors.New("invalid session")
	ErrSessionNotActive  = errors.New("session is not active")
	ErrAlreadyAnswered   = errors.New("student already answered")
)

// PrepareNew validates the required fields of a new session and initializes
// the store-owned ones: id, status, every student pending, timestamps.
func PrepareNew(s *model.StudioSession, now time.Time) error {
	switch {
	case s == nil:
		return fmt.Errorf("%w: nil session", ErrInvalidSession)
	case s.ProfessorID == 0:
		return fmt.Errorf("%w: professor is required", ErrInvalidSession)
	case s.StudioID == "":
		return fmt.Errorf("%w: studio is required", ErrInvalidSession)
	case s.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidSession)
	case s.Time == "":
		return fmt.Errorf("%w: time is required", ErrInvalidSession)
	case len(s.Students) == 0:
		return fmt.Errorf("%w: at least one student is required", ErrInvalidSession)
	}

	s.ID = uuid.NewString()
	s.Status = model.SessionStatusActive
	s.CancelReason = ""
	s.Date = model.TruncateDay(s.Date)
	for id := range s.Students {
		s.Students[id] = model.StudentResponse{Status: model.ResponsePending}
	}
	created := now
	s.CreatedAt = &created
	s.UpdatedAt = now
	return nil
}
