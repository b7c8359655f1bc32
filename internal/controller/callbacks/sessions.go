package callbacks

import (
	"errors"

	cb "github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/state"
	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// invitationCard renders a session from the student's side.
func invitationCard(s *model.StudioSession, studentID int64) (string, *models.InlineKeyboardMarkup) {
	status, _ := s.StudentStatus(studentID)
	n := service.Notification{
		Session:    s,
		MyStatus:   status,
		CanRespond: s.IsActive() && status == model.ResponsePending,
		Canceled:   s.Status == model.SessionStatusCanceled,
	}
	if n.CanRespond {
		return formatting.FormatInvitationCard(n), keyboard.RespondButtons(s.ID)
	}
	return formatting.FormatInvitationCard(n), keyboard.NewBuilder().Build()
}

func handleRespond(hc *HandlerContext) {
	sessionID, status, err := cb.ParseRespond(hc.Callback.Data)
	if err != nil {
		hc.Fail("Bad respond callback", err)
		return
	}

	session, err := hc.Handler.Sessions.Respond(hc.Ctx, hc.User, sessionID, status)
	if err != nil {
		hc.Fail("Failed to respond to invitation", err)
		if errors.Is(err, service.ErrSessionCanceled) || errors.Is(err, service.ErrAlreadyResponded) {
			refreshInvitation(hc, sessionID)
		}
		return
	}

	d := formatting.GetResponseStatusDisplay(status)
	hc.Answer(d.Emoji + " " + d.Text)

	text, kb := invitationCard(session, hc.User.ID)
	if err := hc.EditMessage(text, kb); err != nil {
		hc.Handler.Logger.Warn("Failed to update invitation card", zap.Error(err), zap.String("session_id", sessionID))
	}
}

// refreshInvitation redraws a stale card so it no longer offers answers that will fail.
func refreshInvitation(hc *HandlerContext, sessionID string) {
	session, err := hc.Handler.Sessions.GetSession(hc.Ctx, hc.User, sessionID)
	if err != nil {
		return
	}
	text, kb := invitationCard(session, hc.User.ID)
	if err := hc.EditMessage(text, kb); err != nil {
		hc.Handler.Logger.Warn("Failed to refresh invitation card", zap.Error(err), zap.String("session_id", sessionID))
	}
}

func handleViewSession(hc *HandlerContext) {
	sessionID, err := cb.Suffix(hc.Callback.Data, cb.ViewSession)
	if err != nil {
		hc.Fail("Bad view callback", err)
		return
	}

	view, err := hc.Handler.Sessions.SessionView(hc.Ctx, hc.User, sessionID)
	if err != nil {
		hc.Fail("Failed to load session", err)
		return
	}
	hc.Answer("")

	if _, invited := view.Session.Students[hc.User.ID]; invited {
		text, kb := invitationCard(view.Session, hc.User.ID)
		sendOrLog(hc, text, kb)
		return
	}
	sendOrLog(hc, formatting.FormatProfessorSession(view), keyboard.ProfessorSession(view.Session))
}

// handleCancelSession opens the reason prompt. The session is re-checked on submit.
func handleCancelSession(hc *HandlerContext) {
	sessionID, err := cb.Suffix(hc.Callback.Data, cb.CancelSession)
	if err != nil {
		hc.Fail("Bad cancel callback", err)
		return
	}

	session, err := hc.Handler.Sessions.GetSession(hc.Ctx, hc.User, sessionID)
	if err != nil {
		hc.Fail("Failed to load session", err)
		return
	}
	switch {
	case session.ProfessorID != hc.User.ID && !hc.User.IsAdmin():
		hc.Fail("Cancel by non-owner", service.ErrForbidden)
		return
	case session.Status == model.SessionStatusCanceled:
		hc.Fail("Cancel of canceled session", service.ErrSessionCanceled)
		return
	case session.Status == model.SessionStatusCompleted:
		hc.Fail("Cancel of completed session", service.ErrSessionCompleted)
		return
	}

	sm := hc.Handler.State
	sm.ClearState(hc.TelegramID)
	sm.SetState(hc.TelegramID, state.StateCancelReason)
	sm.SetData(hc.TelegramID, state.KeyCancelSessionID, sessionID)

	hc.Answer("")
	sendOrLog(hc,
		"✍️ Why is the session of "+formatting.FormatSessionWhen(session)+" canceled?\n\n"+
			"Send the reason as a message, it will be shown to the students.",
		keyboard.CancelReasonPrompt(sessionID),
	)
}

func handleCancelNoReason(hc *HandlerContext) {
	sessionID, err := cb.Suffix(hc.Callback.Data, cb.CancelNoReason)
	if err != nil {
		hc.Fail("Bad cancel callback", err)
		return
	}

	session, err := hc.Handler.Sessions.CancelSession(hc.Ctx, hc.User, sessionID, "")
	hc.Handler.State.ClearState(hc.TelegramID)
	if err != nil {
		hc.Fail("Failed to cancel session", err)
		return
	}

	hc.Answer("Session canceled")
	if err := hc.EditMessage(formatting.FormatCancellationNotice(session), keyboard.NewBuilder().Build()); err != nil {
		hc.Handler.Logger.Warn("Failed to edit cancel prompt", zap.Error(err))
	}
}

func handleCancelKeep(hc *HandlerContext) {
	hc.Handler.State.ClearState(hc.TelegramID)
	hc.Answer("")
	if err := hc.EditMessage("👍 The session stays as it is.", keyboard.NewBuilder().Build()); err != nil {
		hc.Handler.Logger.Warn("Failed to edit cancel prompt", zap.Error(err))
	}
}

func sendOrLog(hc *HandlerContext, text string, kb *models.InlineKeyboardMarkup) {
	if err := hc.SendMessage(text, kb); err != nil {
		hc.Handler.Logger.Error("Failed to send message", zap.Error(err), zap.Int64("chat_id", hc.ChatID))
	}
}
