package common

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/state"
	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/go-telegram/bot/models"
)

// Screen is one step of the booking dialog, sent or edited in place.
type Screen struct {
	Text     string
	Keyboard *models.InlineKeyboardMarkup
}

func StudioScreen(catalog *service.StudioCatalog) Screen {
	var sb strings.Builder
	sb.WriteString("🎼 <b>Book the studio</b>\n\nPick a room:\n")
	for _, s := range catalog.All() {
		fmt.Fprintf(&sb, "\n<b>%s</b>", html.EscapeString(s.Name))
		if s.Description != "" {
			fmt.Fprintf(&sb, " · %s", html.EscapeString(s.Description))
		}
	}
	return Screen{Text: sb.String(), Keyboard: keyboard.StudioPicker(catalog.All())}
}

func studioName(sessions *service.SessionService, studioID string) string {
	if s, ok := sessions.Catalog().Get(studioID); ok {
		return s.Name
	}
	return studioID
}

// WeekScreen shows the draft's week; a zero WeekStart means the current week.
func WeekScreen(ctx context.Context, sessions *service.SessionService, draft *state.BookingDraft, now time.Time) (Screen, error) {
	if draft.WeekStart.IsZero() {
		draft.WeekStart = model.WeekStart(now.In(sessions.Location()))
	}
	grid, err := sessions.Checker().Week(ctx, draft.StudioID, draft.WeekStart, now)
	if err != nil {
		return Screen{}, err
	}

	text := fmt.Sprintf("🎼 <b>%s</b>\n🗓 Week %s\n\nPick a day:",
		html.EscapeString(studioName(sessions, draft.StudioID)),
		formatting.FormatWeekRange(grid.Start),
	)
	return Screen{Text: text, Keyboard: keyboard.WeekPicker(grid, now)}, nil
}

// DayScreen shows the slots of draft.Date.
func DayScreen(ctx context.Context, sessions *service.SessionService, draft *state.BookingDraft, now time.Time) (Screen, error) {
	day, err := model.ParseDay(draft.Date, sessions.Location())
	if err != nil {
		return Screen{}, err
	}
	grid, err := sessions.Checker().Week(ctx, draft.StudioID, day, now)
	if err != nil {
		return Screen{}, err
	}
	for _, wd := range grid.Days {
		if wd.Date != draft.Date {
			continue
		}
		text := fmt.Sprintf("🎼 <b>%s</b>\n📅 %s\n\n🟢 free  🔴 booked  ✕ past",
			html.EscapeString(studioName(sessions, draft.StudioID)),
			formatting.FormatDateWithWeekday(day),
		)
		return Screen{Text: text, Keyboard: keyboard.DayPicker(wd)}, nil
	}
	return Screen{}, fmt.Errorf("day %s not in week grid", draft.Date)
}

// StudentsScreen lists the roster filtered by the draft's search.
func StudentsScreen(ctx context.Context, users *service.UserService, actor *model.User, draft *state.BookingDraft) (Screen, error) {
	students, err := users.ListStudents(ctx, actor, draft.Search)
	if err != nil {
		return Screen{}, err
	}

	var sb strings.Builder
	sb.WriteString("👥 <b>Who is coming?</b>\n")
	if draft.Search != "" {
		fmt.Fprintf(&sb, "🔍 “%s”\n", html.EscapeString(draft.Search))
	}
	if len(students) == 0 {
		sb.WriteString("\nNo students found.")
	} else {
		fmt.Fprintf(&sb, "\nTap to select. Selected: %s", formatting.Students(len(draft.StudentIDs)))
	}
	return Screen{Text: sb.String(), Keyboard: keyboard.StudentPicker(students, draft)}, nil
}

// ConfirmScreen summarizes the draft before it is submitted.
func ConfirmScreen(ctx context.Context, sessions *service.SessionService, users *service.UserService, draft *state.BookingDraft) (Screen, error) {
	day, err := model.ParseDay(draft.Date, sessions.Location())
	if err != nil {
		return Screen{}, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📝 <b>Confirm booking</b>\n\n🎼 %s\n📅 %s, %s\n\n👥 %s:",
		html.EscapeString(studioName(sessions, draft.StudioID)),
		formatting.FormatDateWithWeekday(day),
		draft.Time,
		formatting.Students(len(draft.StudentIDs)),
	)
	for _, id := range draft.StudentIDs {
		u, err := users.GetByID(ctx, id)
		if err != nil {
			return Screen{}, err
		}
		fmt.Fprintf(&sb, "\n• %s", html.EscapeString(u.DisplayName()))
	}
	return Screen{Text: sb.String(), Keyboard: keyboard.ConfirmBooking()}, nil
}
