package common

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AnswerCallback shows text as a toast and stops the button spinner.
func AnswerCallback(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	answer(ctx, b, callbackID, text, false)
}

// AnswerCallbackAlert answers with a modal popup instead of a toast.
func AnswerCallbackAlert(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	answer(ctx, b, callbackID, text, true)
}

func answer(ctx context.Context, b *bot.Bot, callbackID, text string, alert bool) {
	// a failed answer only leaves the spinner running until Telegram times out
	_, _ = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
}

// GetMessageFromCallback returns nil for inaccessible (too old) messages.
func GetMessageFromCallback(callback *models.CallbackQuery) *models.Message {
	if callback == nil {
		return nil
	}
	return callback.Message.Message
}

// IsMessageNotModifiedError reports Telegram's complaint about an edit that changes nothing.
func IsMessageNotModifiedError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
