package callbacks

import (
	"context"
	"strings"

	cb "github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Route dispatches a callback query by its data prefix. Exact payloads are
// matched before prefixes that could shadow them.
func Route(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *Handler) {
	data := callback.Data

	h.Logger.Debug("Routing callback",
		zap.String("data", data),
		zap.Int64("user_id", callback.From.ID))

	switch {
	case data == cb.Noop:
		common.AnswerCallback(ctx, b, callback.ID, "")

	// ===== Invitations =====
	case strings.HasPrefix(data, cb.Respond):
		h.withUser(ctx, b, callback, handleRespond)
	case strings.HasPrefix(data, cb.ViewSession):
		h.withUser(ctx, b, callback, handleViewSession)

	// ===== Cancellation =====
	case strings.HasPrefix(data, cb.CancelSession):
		h.withUser(ctx, b, callback, handleCancelSession)
	case strings.HasPrefix(data, cb.CancelNoReason):
		h.withUser(ctx, b, callback, handleCancelNoReason)
	case data == cb.CancelKeep:
		h.withUser(ctx, b, callback, handleCancelKeep)

	// ===== Booking dialog =====
	case data == cb.BookAbort:
		h.withUser(ctx, b, callback, handleBookAbort)
	case data == cb.BookImage:
		h.withDraft(ctx, b, callback, handleBookImage)
	case data == cb.BookSearch:
		h.withDraft(ctx, b, callback, handleBookSearch)
	case data == cb.BookClearSearch:
		h.withDraft(ctx, b, callback, handleBookClearSearch)
	case data == cb.BookStudents:
		h.withDraft(ctx, b, callback, handleBookStudents)
	case data == cb.BookConfirm:
		h.withDraft(ctx, b, callback, handleBookConfirm)
	case data == cb.BookSubmit:
		h.withDraft(ctx, b, callback, handleBookSubmit)
	case data == cb.BookBackStudios:
		h.withDraft(ctx, b, callback, handleBookBackStudios)
	case data == cb.BookBackWeek:
		h.withDraft(ctx, b, callback, handleBookBackWeek)
	case strings.HasPrefix(data, cb.BookStudio):
		h.withDraft(ctx, b, callback, handleBookStudio)
	case strings.HasPrefix(data, cb.BookWeek):
		h.withDraft(ctx, b, callback, handleBookWeek)
	case strings.HasPrefix(data, cb.BookDay):
		h.withDraft(ctx, b, callback, handleBookDay)
	case strings.HasPrefix(data, cb.BookSlot):
		h.withDraft(ctx, b, callback, handleBookSlot)
	case strings.HasPrefix(data, cb.BookStudentsPage):
		h.withDraft(ctx, b, callback, handleBookStudentsPage)
	case strings.HasPrefix(data, cb.BookStudent):
		h.withDraft(ctx, b, callback, handleBookStudent)

	default:
		h.Logger.Warn("Unknown callback", zap.String("data", data))
		common.AnswerCallback(ctx, b, callback.ID, "Unknown action")
	}
}
