package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// maxListed keeps /sessions under Telegram's message and keyboard limits.
const maxListed = 15

func isValidation(err error) bool {
	return errors.Is(err, service.ErrValidation)
}

// HandleSessions lists the sender's sessions: booked ones for professors,
// invitations for students.
func (h *Handlers) HandleSessions(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	if user.IsStudent() {
		h.studentSessions(ctx, b, chatID, user)
		return
	}

	views, err := h.sessionService.ProfessorSessions(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to list professor sessions", zap.Error(err), zap.Int64("user_id", user.ID))
		h.sendError(ctx, b, chatID, common.ErrorMessage(err))
		return
	}
	if len(views) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 No sessions yet. Book one with /book", nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("🗓 <b>Your sessions</b>\n")
	listed := make([]*model.StudioSession, 0, maxListed)
	for _, v := range views {
		if len(listed) == maxListed {
			break
		}
		sb.WriteString("\n" + formatting.FormatProfessorSessionLine(v))
		listed = append(listed, v.Session)
	}
	sb.WriteString("\n\nTap a session to see who is coming.")
	h.sendMessage(ctx, b, chatID, sb.String(), keyboard.SessionList(listed))
}

func (h *Handlers) studentSessions(ctx context.Context, b *bot.Bot, chatID int64, user *model.User) {
	sessions, err := h.sessionService.StudentSessions(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to list student sessions", zap.Error(err), zap.Int64("user_id", user.ID))
		h.sendError(ctx, b, chatID, common.ErrorMessage(err))
		return
	}
	if len(sessions) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 You have no studio sessions.", nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("🗓 <b>Your studio sessions</b>\n")
	if len(sessions) > maxListed {
		sessions = sessions[:maxListed]
	}
	for _, s := range sessions {
		sb.WriteString("\n" + formatting.FormatStudentSessionLine(s, user.ID))
	}
	h.sendMessage(ctx, b, chatID, sb.String(), keyboard.SessionList(sessions))
}

// HandleInvitations sends one card per invitation, with answer buttons while pending.
func (h *Handlers) HandleInvitations(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID
	if !user.IsStudent() {
		h.sendError(ctx, b, chatID, common.ErrorMessage(common.ErrNotAStudent))
		return
	}

	cards, err := h.sessionService.Notifications(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to load invitations", zap.Error(err), zap.Int64("user_id", user.ID))
		h.sendError(ctx, b, chatID, common.ErrorMessage(err))
		return
	}
	if len(cards) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 No invitations.", nil)
		return
	}

	pending := 0
	for _, c := range cards {
		if c.CanRespond {
			pending++
		}
	}
	h.sendMessage(ctx, b, chatID, "📨 "+formatting.Invitations(pending)+" waiting for your answer", nil)

	for _, c := range cards {
		var kb *models.InlineKeyboardMarkup
		if c.CanRespond {
			kb = keyboard.RespondButtons(c.Session.ID)
		}
		h.sendMessage(ctx, b, chatID, formatting.FormatInvitationCard(c), kb)
	}
}
