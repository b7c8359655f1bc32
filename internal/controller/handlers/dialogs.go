package handlers

import (
	"context"
	"strings"

	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

func (h *Handlers) handleStudentSearch(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireBooker(ctx, b, update)
	if !ok {
		return
	}
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	draft, ok := h.stateManager.BookingDraft(telegramID)
	if !ok {
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, common.ErrorMessage(common.ErrNoDraft))
		return
	}

	h.stateManager.SetState(telegramID, state.StateNone)
	draft.Search = strings.TrimSpace(update.Message.Text)
	draft.Page = 0

	screen, err := common.StudentsScreen(ctx, h.userService, user, draft)
	if err != nil {
		h.logger.Error("Failed to list students", zap.Error(err), zap.Int64("telegram_id", telegramID))
		h.sendError(ctx, b, chatID, common.ErrorMessage(err))
		return
	}
	h.sendMessage(ctx, b, chatID, screen.Text, screen.Keyboard)
}

func (h *Handlers) handleCancelReason(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	raw, ok := h.stateManager.GetData(telegramID, state.KeyCancelSessionID)
	sessionID, _ := raw.(string)
	if !ok || sessionID == "" {
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, common.ErrorMessage(common.ErrNoDraft))
		return
	}

	session, err := h.sessionService.CancelSession(ctx, user, sessionID, update.Message.Text)
	if err != nil {
		h.logger.Warn("Failed to cancel session",
			zap.Error(err),
			zap.String("session_id", sessionID),
			zap.Int64("user_id", user.ID),
		)
		h.sendError(ctx, b, chatID, common.ErrorMessage(err))
		// a too long reason can be retyped, anything else ends the dialog
		if !isValidation(err) {
			h.stateManager.ClearState(telegramID)
		}
		return
	}

	h.stateManager.ClearState(telegramID)
	h.sendMessage(ctx, b, chatID, formatting.FormatCancellationNotice(session)+"\n\nThe students have been notified.", nil)
}
