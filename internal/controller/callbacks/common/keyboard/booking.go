package keyboard

import (
	"fmt"
	"time"

	cb "github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/state"
	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/go-telegram/bot/models"
)

const StudentsPageSize = 8

func abortRow() []models.InlineKeyboardButton {
	return []models.InlineKeyboardButton{Button("✖️ Cancel booking", cb.BookAbort)}
}

func StudioPicker(studios []model.Studio) *models.InlineKeyboardMarkup {
	kb := NewBuilder()
	for _, s := range studios {
		kb.Row(Button("🎼 "+s.Name, cb.BookStudio+s.ID))
	}
	kb.Row(abortRow()...)
	return kb.Build()
}

// freeCount counts bookable cells of a day.
func freeCount(day service.WeekDay) int {
	n := 0
	for _, c := range day.Cells {
		if c.State == service.CellAvailable {
			n++
		}
	}
	return n
}

// WeekPicker shows one button per day of the grid. Past and fully booked
// days are inert. The previous-week arrow is hidden for the current week.
func WeekPicker(grid *service.WeekGrid, now time.Time) *models.InlineKeyboardMarkup {
	kb := NewBuilder()
	for _, day := range grid.Days {
		date, err := time.ParseInLocation(model.DateLayout, day.Date, grid.Start.Location())
		if err != nil {
			continue
		}
		label := formatting.FormatDateWithWeekday(date)
		switch free := freeCount(day); {
		case free == 0 && day.Cells[0].State == service.CellPast:
			kb.Row(Button("✕ "+label, cb.Noop))
		case free == 0:
			kb.Row(Button("🔴 "+label+" · full", cb.Noop))
		default:
			kb.Row(Button(fmt.Sprintf("%s · %d free", label, free), cb.BookDay+day.Date))
		}
	}

	var nav []models.InlineKeyboardButton
	if grid.Start.After(model.WeekStart(now.In(grid.Start.Location()))) {
		prev := grid.Start.AddDate(0, 0, -7)
		nav = append(nav, Button("◀️ Previous week", cb.BookWeek+prev.Format(model.DateLayout)))
	}
	next := grid.Start.AddDate(0, 0, 7)
	nav = append(nav, Button("Next week ▶️", cb.BookWeek+next.Format(model.DateLayout)))
	kb.Row(nav...)

	kb.Row(
		Button("🖼 Week image", cb.BookImage),
		Button("⬅️ Studios", cb.BookBackStudios),
	)
	kb.Row(abortRow()...)
	return kb.Build()
}

// DayPicker shows the slots of one day, three per row.
func DayPicker(day service.WeekDay) *models.InlineKeyboardMarkup {
	buttons := make([]models.InlineKeyboardButton, 0, len(day.Cells))
	for _, c := range day.Cells {
		switch c.State {
		case service.CellAvailable:
			buttons = append(buttons, Button("🟢 "+c.Time, cb.SlotData(day.Date, c.Time)))
		case service.CellBooked:
			buttons = append(buttons, Button("🔴 "+c.Time, cb.Noop))
		default:
			buttons = append(buttons, Button("✕ "+c.Time, cb.Noop))
		}
	}

	return NewBuilder().
		Grid(3, buttons...).
		Row(Button("⬅️ Week", cb.BookBackWeek)).
		Row(abortRow()...).
		Build()
}

// StudentPicker toggles roster entries for the draft, one page at a time.
func StudentPicker(students []*model.User, draft *state.BookingDraft) *models.InlineKeyboardMarkup {
	start, end, page, pages := Paginate(len(students), draft.Page, StudentsPageSize)
	draft.Page = page

	kb := NewBuilder()
	for _, u := range students[start:end] {
		mark := "▫️"
		if draft.IsSelected(u.ID) {
			mark = "✅"
		}
		label := mark + " " + u.DisplayName()
		if u.Instrument != "" {
			label += " · " + u.Instrument
		}
		kb.Row(Button(label, fmt.Sprintf("%s%d", cb.BookStudent, u.ID)))
	}
	kb.Row(PaginationButtons(cb.BookStudentsPage, page, pages)...)

	search := []models.InlineKeyboardButton{Button("🔍 Search", cb.BookSearch)}
	if draft.Search != "" {
		search = append(search, Button("✖️ Clear search", cb.BookClearSearch))
	}
	kb.Row(search...)

	nav := []models.InlineKeyboardButton{Button("⬅️ Time", cb.BookDay+draft.Date)}
	if len(draft.StudentIDs) > 0 {
		nav = append(nav, Button(fmt.Sprintf("Continue (%d) ➡️", len(draft.StudentIDs)), cb.BookConfirm))
	}
	kb.Row(nav...)
	kb.Row(abortRow()...)
	return kb.Build()
}

func ConfirmBooking() *models.InlineKeyboardMarkup {
	return NewBuilder().
		Row(Button("✅ Book", cb.BookSubmit)).
		Row(Button("⬅️ Students", cb.BookStudents)).
		Row(abortRow()...).
		Build()
}

// RespondButtons is attached to an invitation card while the answer is pending.
func RespondButtons(sessionID string) *models.InlineKeyboardMarkup {
	return NewBuilder().Row(
		Button("✅ Confirm", cb.RespondData(sessionID, model.ResponseConfirmed)),
		Button("🚫 Decline", cb.RespondData(sessionID, model.ResponseDeclined)),
	).Build()
}

// ProfessorSession offers cancellation for an active session.
func ProfessorSession(s *model.StudioSession) *models.InlineKeyboardMarkup {
	kb := NewBuilder()
	if s.IsActive() {
		kb.Row(Button("❌ Cancel session", cb.CancelSession+s.ID))
	}
	return kb.Build()
}

// SessionList links each session of the overview to its detail card.
func SessionList(sessions []*model.StudioSession) *models.InlineKeyboardMarkup {
	kb := NewBuilder()
	for _, s := range sessions {
		kb.Row(Button(fmt.Sprintf("%s · %s", formatting.FormatSessionWhen(s), s.StudioName), cb.ViewSession+s.ID))
	}
	return kb.Build()
}

func CancelReasonPrompt(sessionID string) *models.InlineKeyboardMarkup {
	return NewBuilder().
		Row(Button("Cancel without reason", cb.CancelNoReason+sessionID)).
		Row(Button("↩️ Keep the session", cb.CancelKeep)).
		Build()
}
