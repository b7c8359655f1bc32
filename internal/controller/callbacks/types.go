package callbacks

import (
	"context"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/state"
	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Handler holds the dependencies of every callback handler.
type Handler struct {
	Users    *service.UserService
	Sessions *service.SessionService
	State    *state.Manager
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewHandler(
	users *service.UserService,
	sessions *service.SessionService,
	stateManager *state.Manager,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:    users,
		Sessions: sessions,
		State:    stateManager,
		Logger:   logger,
		Now:      time.Now,
	}
}

// HandleCallbackQuery is registered with the bot for every inline button.
func (h *Handler) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	Route(ctx, b, update.CallbackQuery, h)
}

// HandlerContext carries what one callback needs: the resolved user, its
// chat and the message holding the pressed button.
type HandlerContext struct {
	Ctx        context.Context
	Bot        *bot.Bot
	Callback   *models.CallbackQuery
	Handler    *Handler
	Message    *models.Message
	User       *model.User
	TelegramID int64
	ChatID     int64
}

func (h *Handler) newContext(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) *HandlerContext {
	msg := common.GetMessageFromCallback(callback)
	var chatID int64
	if msg != nil {
		chatID = msg.Chat.ID
	}
	return &HandlerContext{
		Ctx:        ctx,
		Bot:        b,
		Callback:   callback,
		Handler:    h,
		Message:    msg,
		TelegramID: callback.From.ID,
		ChatID:     chatID,
	}
}

func (hc *HandlerContext) LoadUser() error {
	user, err := hc.Handler.Users.GetByTelegramID(hc.Ctx, hc.TelegramID)
	if err != nil {
		return err
	}
	if user == nil {
		return common.ErrUserNotFound
	}
	hc.User = user
	return nil
}

func (hc *HandlerContext) Answer(text string) {
	common.AnswerCallback(hc.Ctx, hc.Bot, hc.Callback.ID, text)
}

func (hc *HandlerContext) AnswerAlert(text string) {
	common.AnswerCallbackAlert(hc.Ctx, hc.Bot, hc.Callback.ID, text)
}

// Fail logs err and shows its user-facing text as an alert.
func (hc *HandlerContext) Fail(msg string, err error) {
	hc.Handler.Logger.Warn(msg,
		zap.Error(err),
		zap.Int64("telegram_id", hc.TelegramID),
		zap.String("data", hc.Callback.Data),
	)
	hc.AnswerAlert(common.ErrorMessage(err))
}

// EditMessage replaces the text and keyboard of the message with the button.
func (hc *HandlerContext) EditMessage(text string, keyboard *models.InlineKeyboardMarkup) error {
	if hc.Message == nil {
		return common.ErrNoMessage
	}

	params := &bot.EditMessageTextParams{
		ChatID:    hc.ChatID,
		MessageID: hc.Message.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	_, err := hc.Bot.EditMessageText(hc.Ctx, params)
	if common.IsMessageNotModifiedError(err) {
		return nil
	}
	return err
}

func (hc *HandlerContext) EditScreen(s common.Screen) error {
	return hc.EditMessage(s.Text, s.Keyboard)
}

func (hc *HandlerContext) SendMessage(text string, keyboard *models.InlineKeyboardMarkup) error {
	params := &bot.SendMessageParams{
		ChatID:    hc.ChatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	_, err := hc.Bot.SendMessage(hc.Ctx, params)
	return err
}

func (hc *HandlerContext) now() time.Time {
	return hc.Handler.Now()
}
