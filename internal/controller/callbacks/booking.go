package callbacks

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"strconv"

	cb "github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/state"
	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/render"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// show edits the dialog message into the next step, or reports why the step failed.
func show(hc *HandlerContext, screen common.Screen, err error) {
	if err != nil {
		hc.Fail("Failed to build booking step", err)
		return
	}
	hc.Answer("")
	if err := hc.EditScreen(screen); err != nil {
		hc.Handler.Logger.Warn("Failed to edit booking message", zap.Error(err))
	}
}

func showWeek(hc *HandlerContext, draft *state.BookingDraft) {
	screen, err := common.WeekScreen(hc.Ctx, hc.Handler.Sessions, draft, hc.now())
	show(hc, screen, err)
}

func showDay(hc *HandlerContext, draft *state.BookingDraft) {
	screen, err := common.DayScreen(hc.Ctx, hc.Handler.Sessions, draft, hc.now())
	show(hc, screen, err)
}

func showStudents(hc *HandlerContext, draft *state.BookingDraft) {
	screen, err := common.StudentsScreen(hc.Ctx, hc.Handler.Users, hc.User, draft)
	show(hc, screen, err)
}

func handleBookStudio(hc *HandlerContext, draft *state.BookingDraft) {
	studioID, err := cb.Suffix(hc.Callback.Data, cb.BookStudio)
	if err != nil {
		hc.Fail("Bad studio callback", err)
		return
	}
	if _, ok := hc.Handler.Sessions.Catalog().Get(studioID); !ok {
		hc.Fail("Unknown studio in callback", service.ErrUnknownStudio)
		return
	}

	draft.StudioID = studioID
	draft.Date, draft.Time = "", ""
	showWeek(hc, draft)
}

func handleBookWeek(hc *HandlerContext, draft *state.BookingDraft) {
	raw, err := cb.Suffix(hc.Callback.Data, cb.BookWeek)
	if err != nil {
		hc.Fail("Bad week callback", err)
		return
	}
	day, err := model.ParseDay(raw, hc.Handler.Sessions.Location())
	if err != nil {
		hc.Fail("Bad week callback", cb.ErrInvalidFormat)
		return
	}

	week := model.WeekStart(day)
	if current := model.WeekStart(hc.now().In(hc.Handler.Sessions.Location())); week.Before(current) {
		week = current
	}
	draft.WeekStart = week
	showWeek(hc, draft)
}

func handleBookDay(hc *HandlerContext, draft *state.BookingDraft) {
	raw, err := cb.Suffix(hc.Callback.Data, cb.BookDay)
	if err != nil {
		hc.Fail("Bad day callback", err)
		return
	}
	day, err := model.ParseDay(raw, hc.Handler.Sessions.Location())
	if err != nil {
		hc.Fail("Bad day callback", cb.ErrInvalidFormat)
		return
	}
	if hc.Handler.Sessions.Checker().IsPast(day, hc.now()) {
		hc.AnswerAlert("✕ This day has already passed")
		showWeek(hc, draft)
		return
	}

	draft.Date = raw
	draft.Time = ""
	showDay(hc, draft)
}

func handleBookSlot(hc *HandlerContext, draft *state.BookingDraft) {
	date, slot, err := cb.ParseSlot(hc.Callback.Data)
	if err != nil {
		hc.Fail("Bad slot callback", err)
		return
	}
	day, err := model.ParseDay(date, hc.Handler.Sessions.Location())
	if err != nil {
		hc.Fail("Bad slot callback", cb.ErrInvalidFormat)
		return
	}

	draft.Date = date
	ok, err := hc.Handler.Sessions.Checker().SlotAvailable(hc.Ctx, draft.StudioID, day, slot, hc.now())
	if err != nil {
		hc.Fail("Failed to check slot", err)
		return
	}
	if !ok {
		hc.AnswerAlert(common.ErrorMessage(service.ErrSlotBooked))
		showDay(hc, draft)
		return
	}

	draft.Time = slot
	draft.Page = 0
	showStudents(hc, draft)
}

// handleBookImage sends the draft week as a picture below the dialog.
func handleBookImage(hc *HandlerContext, draft *state.BookingDraft) {
	sessions := hc.Handler.Sessions
	studio, ok := sessions.Catalog().Get(draft.StudioID)
	if !ok {
		hc.Fail("Week image without studio", common.ErrNoDraft)
		return
	}

	now := hc.now()
	week := draft.WeekStart
	if week.IsZero() {
		week = now
	}
	grid, err := sessions.Checker().Week(hc.Ctx, studio.ID, week, now)
	if err != nil {
		hc.Fail("Failed to build week grid", err)
		return
	}
	img, err := render.WeekImage(grid, studio.Name, now)
	if err != nil {
		hc.Fail("Failed to render week image", err)
		return
	}

	hc.Answer("")
	_, err = hc.Bot.SendPhoto(hc.Ctx, &bot.SendPhotoParams{
		ChatID: hc.ChatID,
		Photo: &models.InputFileUpload{
			Filename: fmt.Sprintf("%s_%s.png", studio.ID, grid.Start.Format(model.DateLayout)),
			Data:     bytes.NewReader(img),
		},
		Caption: studio.Name + " · " + formatting.FormatWeekRange(grid.Start),
	})
	if err != nil {
		hc.Handler.Logger.Error("Failed to send week image", zap.Error(err), zap.Int64("chat_id", hc.ChatID))
	}
}

func handleBookStudent(hc *HandlerContext, draft *state.BookingDraft) {
	raw, err := cb.Suffix(hc.Callback.Data, cb.BookStudent)
	if err != nil {
		hc.Fail("Bad student callback", err)
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		hc.Fail("Bad student callback", cb.ErrInvalidFormat)
		return
	}
	draft.Toggle(id)
	showStudents(hc, draft)
}

func handleBookStudentsPage(hc *HandlerContext, draft *state.BookingDraft) {
	raw, err := cb.Suffix(hc.Callback.Data, cb.BookStudentsPage)
	if err != nil {
		hc.Fail("Bad page callback", err)
		return
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		hc.Fail("Bad page callback", cb.ErrInvalidFormat)
		return
	}
	draft.Page = page
	showStudents(hc, draft)
}

// handleBookSearch waits for the search text; the text handler redraws the roster.
func handleBookSearch(hc *HandlerContext, _ *state.BookingDraft) {
	hc.Handler.State.SetState(hc.TelegramID, state.StateBookingStudentSearch)
	hc.Answer("")
	sendOrLog(hc, "🔍 Type a name, username or instrument:", nil)
}

func handleBookClearSearch(hc *HandlerContext, draft *state.BookingDraft) {
	draft.Search = ""
	draft.Page = 0
	showStudents(hc, draft)
}

func handleBookStudents(hc *HandlerContext, draft *state.BookingDraft) {
	showStudents(hc, draft)
}

func handleBookConfirm(hc *HandlerContext, draft *state.BookingDraft) {
	if !draft.HasSlot() {
		hc.Fail("Confirm without slot", common.ErrNoDraft)
		return
	}
	if len(draft.StudentIDs) == 0 {
		hc.AnswerAlert("Select at least one student")
		return
	}
	screen, err := common.ConfirmScreen(hc.Ctx, hc.Handler.Sessions, hc.Handler.Users, draft)
	show(hc, screen, err)
}

func handleBookSubmit(hc *HandlerContext, draft *state.BookingDraft) {
	session, err := hc.Handler.Sessions.CreateSession(hc.Ctx, hc.User, service.CreateSessionInput{
		StudioID:   draft.StudioID,
		Date:       draft.Date,
		Time:       draft.Time,
		StudentIDs: draft.StudentIDs,
	})
	if err != nil {
		hc.Fail("Failed to create session", err)
		if errors.Is(err, service.ErrSlotBooked) {
			draft.Time = ""
			screen, err := common.DayScreen(hc.Ctx, hc.Handler.Sessions, draft, hc.now())
			if err == nil {
				_ = hc.EditScreen(screen)
			}
		}
		return
	}

	hc.Handler.State.ClearState(hc.TelegramID)
	hc.Answer("✅ Booked")

	text := fmt.Sprintf("✅ <b>Session booked</b>\n\n🎼 %s\n📅 %s\n\nInvitations sent to %s.",
		html.EscapeString(session.StudioName),
		formatting.FormatSessionWhen(session),
		formatting.Students(len(session.Students)),
	)
	if err := hc.EditMessage(text, keyboard.ProfessorSession(session)); err != nil {
		hc.Handler.Logger.Warn("Failed to edit booking message", zap.Error(err))
	}
}

func handleBookBackStudios(hc *HandlerContext, draft *state.BookingDraft) {
	draft.StudioID = ""
	show(hc, common.StudioScreen(hc.Handler.Sessions.Catalog()), nil)
}

func handleBookBackWeek(hc *HandlerContext, draft *state.BookingDraft) {
	draft.Time = ""
	showWeek(hc, draft)
}

func handleBookAbort(hc *HandlerContext) {
	hc.Handler.State.ClearState(hc.TelegramID)
	hc.Answer("")
	if err := hc.EditMessage("✖️ Booking canceled.", keyboard.NewBuilder().Build()); err != nil {
		hc.Handler.Logger.Warn("Failed to edit booking message", zap.Error(err))
	}
}
