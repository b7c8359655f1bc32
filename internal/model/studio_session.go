package model

import (
	"sort"
	"time"
)

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCanceled  SessionStatus = "canceled"
	SessionStatusCompleted SessionStatus = "completed"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusActive, SessionStatusCanceled, SessionStatusCompleted:
		return true
	}
	return false
}

type ResponseStatus string

const (
	ResponsePending   ResponseStatus = "pending"
	ResponseConfirmed ResponseStatus = "confirmed"
	ResponseDeclined  ResponseStatus = "declined"
)

func (s ResponseStatus) Valid() bool {
	switch s {
	case ResponsePending, ResponseConfirmed, ResponseDeclined:
		return true
	}
	return false
}

// IsAnswer reports whether a student may move to s from pending.
func (s ResponseStatus) IsAnswer() bool {
	return s == ResponseConfirmed || s == ResponseDeclined
}

// DateLayout is the calendar-day key used for session dates everywhere.
const DateLayout = "2006-01-02"

type StudentResponse struct {
	Status      ResponseStatus `json:"status" bson:"status"`
	RespondedAt *time.Time     `json:"responded_at,omitempty" bson:"respondedAt,omitempty"`
}

type StudioSession struct {
	ID            string                    `json:"id"`
	StudioID      string                    `json:"studio_id"`
	StudioName    string                    `json:"studio_name"`
	ProfessorID   int64                     `json:"professor_id"`
	ProfessorName string                    `json:"professor_name"`
	Date          time.Time                 `json:"date"`
	Time          string                    `json:"time"`
	Status        SessionStatus             `json:"status"`
	CancelReason  string                    `json:"cancel_reason,omitempty"`
	Students      map[int64]StudentResponse `json:"students"`
	CreatedAt     *time.Time                `json:"created_at,omitempty"` // nil on legacy records until back-filled
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// DayKey returns the session date as a calendar-day key.
func (s *StudioSession) DayKey() string {
	return s.Date.Format(DateLayout)
}

// StartsAt combines the session date with its slot time in the date's location.
func (s *StudioSession) StartsAt() time.Time {
	h, m, err := ParseSlotTime(s.Time)
	if err != nil {
		return s.Date
	}
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), h, m, 0, 0, s.Date.Location())
}

func (s *StudioSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// StudentStatus returns the response of one invited student.
func (s *StudioSession) StudentStatus(studentID int64) (ResponseStatus, bool) {
	r, ok := s.Students[studentID]
	return r.Status, ok
}

// StudentIDs returns the invited students in ascending order.
func (s *StudioSession) StudentIDs() []int64 {
	ids := make([]int64, 0, len(s.Students))
	for id := range s.Students {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ResponseCounts aggregates student answers of one session.
type ResponseCounts struct {
	Confirmed int `json:"confirmed"`
	Declined  int `json:"declined"`
	Pending   int `json:"pending"`
}

func (s *StudioSession) Counts() ResponseCounts {
	var c ResponseCounts
	for _, r := range s.Students {
		switch r.Status {
		case ResponseConfirmed:
			c.Confirmed++
		case ResponseDeclined:
			c.Declined++
		default:
			c.Pending++
		}
	}
	return c
}

// Clone returns a deep copy, so stores can hand out sessions without sharing the map.
func (s *StudioSession) Clone() *StudioSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Students = make(map[int64]StudentResponse, len(s.Students))
	for id, r := range s.Students {
		if r.RespondedAt != nil {
			t := *r.RespondedAt
			r.RespondedAt = &t
		}
		c.Students[id] = r
	}
	if s.CreatedAt != nil {
		t := *s.CreatedAt
		c.CreatedAt = &t
	}
	return &c
}

// SortForStudent orders a student's sessions: own pending invitations first,
// then everything by date (and slot time) descending.
func SortForStudent(sessions []*StudioSession, studentID int64) {
	sort.SliceStable(sessions, func(i, j int) bool {
		pi := isPendingFor(sessions[i], studentID)
		pj := isPendingFor(sessions[j], studentID)
		if pi != pj {
			return pi
		}
		return sessions[i].StartsAt().After(sessions[j].StartsAt())
	})
}

// SortByDateDesc orders sessions newest first.
func SortByDateDesc(sessions []*StudioSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartsAt().After(sessions[j].StartsAt())
	})
}

func isPendingFor(s *StudioSession, studentID int64) bool {
	st, ok := s.StudentStatus(studentID)
	return ok && st == ResponsePending
}
