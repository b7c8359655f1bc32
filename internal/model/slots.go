package model

import (
	"fmt"
	"time"
)

const (
	firstSlotHour = 8
	lastSlotHour  = 20
	lunchHour     = 12
)

// SlotTimes lists the bookable hour-aligned slots: 08:00..20:00 without 12:00.
var SlotTimes = buildSlotTimes()

func buildSlotTimes() []string {
	slots := make([]string, 0, lastSlotHour-firstSlotHour)
	for h := firstSlotHour; h <= lastSlotHour; h++ {
		if h == lunchHour {
			continue
		}
		slots = append(slots, fmt.Sprintf("%02d:00", h))
	}
	return slots
}

// IsSlotTime reports whether t is one of SlotTimes.
func IsSlotTime(t string) bool {
	for _, s := range SlotTimes {
		if s == t {
			return true
		}
	}
	return false
}

// ParseSlotTime splits "HH:MM" into hour and minute.
func ParseSlotTime(t string) (int, int, error) {
	parsed, err := time.Parse("15:04", t)
	if err != nil {
		return 0, 0, fmt.Errorf("parse slot time %q: %w", t, err)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

// TruncateDay returns midnight of t's calendar day in t's location.
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekStart returns the Monday of the week containing t.
func WeekStart(t time.Time) time.Time {
	day := TruncateDay(t)
	offset := int(day.Weekday()) - 1
	if day.Weekday() == time.Sunday {
		offset = 6
	}
	return day.AddDate(0, 0, -offset)
}

// ParseDay parses a calendar-day key in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}
