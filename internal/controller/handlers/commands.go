package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/state"
	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const studentHelp = "/sessions - My studio sessions\n" +
	"/invitations - Invitations waiting for an answer\n" +
	"/help - This help"

const professorHelp = "/book - Book a studio session\n" +
	"/sessions - My booked sessions and who is coming\n" +
	"/cancel - Abort the current dialog\n" +
	"/help - This help"

func helpFor(role model.Role) string {
	if role == model.RoleStudent {
		return studentHelp
	}
	return professorHelp
}

// HandleStart registers the Telegram account, new accounts become students.
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	from := update.Message.From

	user, err := h.userService.RegisterTelegramUser(ctx, from.ID, from.Username, from.FirstName, from.LastName)
	if err != nil {
		h.logger.Error("Failed to register user", zap.Error(err), zap.Int64("telegram_id", from.ID))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Registration failed. Please try again later.")
		return
	}

	text := fmt.Sprintf("👋 Hi, %s!\n\nThis bot books the music school studios and collects who is coming.\n\n%s",
		html.EscapeString(user.DisplayName()),
		helpFor(user.Role),
	)
	h.sendMessage(ctx, b, update.Message.Chat.ID, text, nil)
}

func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, "📚 Commands:\n\n"+helpFor(user.Role), nil)
}

// HandleCancel aborts whatever dialog the user is in.
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	_, hasDraft := h.stateManager.BookingDraft(telegramID)
	if h.stateManager.GetState(telegramID) == state.StateNone && !hasDraft {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "Nothing to cancel.", nil)
		return
	}

	h.stateManager.ClearState(telegramID)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Canceled.", nil)
}

// HandleBook opens the booking dialog with the studio picker.
func (h *Handlers) HandleBook(ctx context.Context, b *bot.Bot, update *models.Update) {
	if _, ok := h.requireBooker(ctx, b, update); !ok {
		return
	}

	h.stateManager.StartBooking(update.Message.From.ID)
	screen := common.StudioScreen(h.sessionService.Catalog())
	h.sendMessage(ctx, b, update.Message.Chat.ID, screen.Text, screen.Keyboard)
}

// HandleTextMessage feeds free text into the dialog step the user is in.
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	switch current := h.stateManager.GetState(telegramID); current {
	case state.StateNone:
		return
	case state.StateBookingStudentSearch:
		h.handleStudentSearch(ctx, b, update)
	case state.StateCancelReason:
		h.handleCancelReason(ctx, b, update)
	default:
		h.logger.Warn("Unknown state", zap.String("state", string(current)))
	}
}
