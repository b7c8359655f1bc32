package formatting

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
)

func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// FormatDateWithWeekday renders "Mon 10.03".
func FormatDateWithWeekday(t time.Time) string {
	return WeekdayShort(t.Weekday()) + " " + t.Format("02.01")
}

// FormatSessionWhen renders "Mon 10.03.2025, 14:00".
func FormatSessionWhen(s *model.StudioSession) string {
	return fmt.Sprintf("%s %s, %s", WeekdayShort(s.Date.Weekday()), FormatDate(s.Date), s.Time)
}

// FormatWeekRange renders "10.03 - 16.03.2025" for the week starting at monday.
func FormatWeekRange(monday time.Time) string {
	sunday := monday.AddDate(0, 0, 6)
	return monday.Format("02.01") + " - " + FormatDate(sunday)
}

func WeekdayShort(d time.Weekday) string {
	return d.String()[:3]
}
