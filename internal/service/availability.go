package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
)

// BookedSlots maps a day key to the set of booked slot times.
type BookedSlots map[string]map[string]bool

func (b BookedSlots) IsBooked(day time.Time, slot string) bool {
	return b[day.Format(model.DateLayout)][slot]
}

func (b BookedSlots) add(dayKey, slot string) {
	times, ok := b[dayKey]
	if !ok {
		times = make(map[string]bool)
		b[dayKey] = times
	}
	times[slot] = true
}

type CellState string

const (
	CellAvailable CellState = "available"
	CellBooked    CellState = "booked"
	CellPast      CellState = "past"
)

type SlotCell struct {
	Time  string    `json:"time"`
	State CellState `json:"state"`
}

type WeekDay struct {
	Date  string     `json:"date"`
	Cells []SlotCell `json:"cells"`
}

// WeekGrid is a Monday-based week of fixed slots for one studio.
type WeekGrid struct {
	StudioID string    `json:"studio_id"`
	Start    time.Time `json:"start"`
	Days     []WeekDay `json:"days"`
}

func (g *WeekGrid) Cell(day, slot int) SlotCell {
	return g.Days[day].Cells[slot]
}

// AvailabilityChecker derives booked and free slots from active sessions.
// Its answers are advisory; the store's slot constraint is what prevents
// double-booking.
type AvailabilityChecker struct {
	sessions SessionStore
	loc      *time.Location
}

func NewAvailabilityChecker(sessions SessionStore, loc *time.Location) *AvailabilityChecker {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityChecker{sessions: sessions, loc: loc}
}

// Booked collects slots taken by non-canceled sessions in [from, to).
// An empty studioID covers every studio.
func (c *AvailabilityChecker) Booked(ctx context.Context, studioID string, from, to time.Time) (BookedSlots, error) {
	sessions, err := c.sessions.ListByStudio(ctx, studioID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list studio sessions: %w", err)
	}

	booked := make(BookedSlots)
	for _, s := range sessions {
		if s.Status == model.SessionStatusCanceled {
			continue
		}
		booked.add(s.DayKey(), s.Time)
	}
	return booked, nil
}

// IsPast compares calendar days in the checker's location.
func (c *AvailabilityChecker) IsPast(day, now time.Time) bool {
	d := model.TruncateDay(day.In(c.loc))
	today := model.TruncateDay(now.In(c.loc))
	return d.Before(today)
}

// IsAvailable reports whether slot on day can be booked at now.
func (c *AvailabilityChecker) IsAvailable(booked BookedSlots, day time.Time, slot string, now time.Time) bool {
	if c.IsPast(day, now) {
		return false
	}
	return !booked.IsBooked(day, slot)
}

// SlotAvailable checks one slot against the store.
func (c *AvailabilityChecker) SlotAvailable(ctx context.Context, studioID string, day time.Time, slot string, now time.Time) (bool, error) {
	start := model.TruncateDay(day.In(c.loc))
	booked, err := c.Booked(ctx, studioID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return false, err
	}
	return c.IsAvailable(booked, start, slot, now), nil
}

// Week builds the grid of the week containing anyDay.
func (c *AvailabilityChecker) Week(ctx context.Context, studioID string, anyDay, now time.Time) (*WeekGrid, error) {
	start := model.WeekStart(anyDay.In(c.loc))
	end := start.AddDate(0, 0, 7)

	booked, err := c.Booked(ctx, studioID, start, end)
	if err != nil {
		return nil, err
	}

	grid := &WeekGrid{
		StudioID: studioID,
		Start:    start,
		Days:     make([]WeekDay, 0, 7),
	}
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		wd := WeekDay{
			Date:  day.Format(model.DateLayout),
			Cells: make([]SlotCell, 0, len(model.SlotTimes)),
		}
		past := c.IsPast(day, now)
		for _, slot := range model.SlotTimes {
			state := CellAvailable
			switch {
			case past:
				state = CellPast
			case booked.IsBooked(day, slot):
				state = CellBooked
			}
			wd.Cells = append(wd.Cells, SlotCell{Time: slot, State: state})
		}
		grid.Days = append(grid.Days, wd)
	}
	return grid, nil
}
