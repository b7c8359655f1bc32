package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSlotTimes(t *testing.T) {
	require.Len(t, SlotTimes, 12)
	assert.Equal(t, "08:00", SlotTimes[0])
	assert.Equal(t, "20:00", SlotTimes[len(SlotTimes)-1])
	assert.NotContains(t, SlotTimes, "12:00")

	tests := []struct {
		in   string
		want bool
	}{
		{"08:00", true},
		{"14:00", true},
		{"12:00", false},
		{"07:00", false},
		{"21:00", false},
		{"14:30", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSlotTime(tt.in))
		})
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"monday", day("2025-03-10"), "2025-03-10"},
		{"wednesday", day("2025-03-12").Add(15 * time.Hour), "2025-03-10"},
		{"sunday", day("2025-03-16"), "2025-03-10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekStart(tt.in).Format(DateLayout))
		})
	}
}

func TestStudioSession_Counts(t *testing.T) {
	s := &StudioSession{Students: map[int64]StudentResponse{
		1: {Status: ResponseConfirmed},
		2: {Status: ResponsePending},
		3: {Status: ResponseDeclined},
		4: {Status: ResponsePending},
	}}

	assert.Equal(t, ResponseCounts{Confirmed: 1, Declined: 1, Pending: 2}, s.Counts())
}

func TestStudioSession_Clone(t *testing.T) {
	now := time.Now()
	s := &StudioSession{
		ID:        "a",
		Students:  map[int64]StudentResponse{1: {Status: ResponsePending}},
		CreatedAt: &now,
	}

	c := s.Clone()
	c.Students[1] = StudentResponse{Status: ResponseConfirmed}
	c.Students[2] = StudentResponse{Status: ResponsePending}

	assert.Len(t, s.Students, 1)
	assert.Equal(t, ResponsePending, s.Students[1].Status)
	assert.NotSame(t, s.CreatedAt, c.CreatedAt)
}

func TestSortForStudent(t *testing.T) {
	const me int64 = 7
	mk := func(id, date, slot string, st ResponseStatus) *StudioSession {
		return &StudioSession{
			ID:       id,
			Date:     day(date),
			Time:     slot,
			Students: map[int64]StudentResponse{me: {Status: st}},
		}
	}
	sessions := []*StudioSession{
		mk("confirmed-new", "2025-03-20", "10:00", ResponseConfirmed),
		mk("pending-old", "2025-03-01", "10:00", ResponsePending),
		mk("declined-mid", "2025-03-10", "10:00", ResponseDeclined),
		mk("pending-new", "2025-03-15", "09:00", ResponsePending),
		mk("pending-new-later", "2025-03-15", "18:00", ResponsePending),
	}

	SortForStudent(sessions, me)

	var got []string
	for _, s := range sessions {
		got = append(got, s.ID)
	}
	assert.Equal(t, []string{
		"pending-new-later",
		"pending-new",
		"pending-old",
		"confirmed-new",
		"declined-mid",
	}, got)
}

func TestUser_Matches(t *testing.T) {
	u := &User{FirstName: "Ana", LastName: "Gómez", Username: "anag", Email: "ana@example.com", Instrument: "Violin"}

	assert.True(t, u.Matches(""))
	assert.True(t, u.Matches("violin"))
	assert.True(t, u.Matches("ANA G"))
	assert.True(t, u.Matches("example"))
	assert.False(t, u.Matches("piano"))
}
