package callbacks

import (
	"context"

	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// withUser resolves the pressing user before calling handler.
func (h *Handler) withUser(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	handler func(*HandlerContext),
) {
	hc := h.newContext(ctx, b, callback)
	if err := hc.LoadUser(); err != nil {
		hc.Fail("Failed to load user", err)
		return
	}
	handler(hc)
}

// withBooker also requires a professor or admin.
func (h *Handler) withBooker(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	handler func(*HandlerContext),
) {
	h.withUser(ctx, b, callback, func(hc *HandlerContext) {
		if !hc.User.CanBook() {
			hc.Fail("Booking callback from non-booker", common.ErrNotABooker)
			return
		}
		handler(hc)
	})
}

// withDraft also requires an open /book dialog.
func (h *Handler) withDraft(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	handler func(*HandlerContext, *state.BookingDraft),
) {
	h.withBooker(ctx, b, callback, func(hc *HandlerContext) {
		draft, ok := h.State.BookingDraft(hc.TelegramID)
		if !ok {
			hc.Fail("Booking callback without draft", common.ErrNoDraft)
			return
		}
		handler(hc, draft)
	})
}
