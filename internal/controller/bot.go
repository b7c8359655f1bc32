package controller

import (
	"context"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/handlers"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/notifier"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/state"
	"github.com/Freeeeeet/studio_scheduler/internal/events"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	dialogTTL     = 30 * time.Minute
	sweepInterval = 5 * time.Minute
)

type BotController struct {
	bot             *bot.Bot
	handlers        *handlers.Handlers
	callbackHandler *callbacks.Handler
	notifier        *notifier.Notifier
	stateManager    *state.Manager
	hub             *events.Hub
	logger          *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	userService *service.UserService,
	sessionService *service.SessionService,
	hub *events.Hub,
	logger *zap.Logger,
) *BotController {
	stateManager := state.NewManager()

	return &BotController{
		bot:             botInstance,
		handlers:        handlers.NewHandlers(userService, sessionService, stateManager, logger),
		callbackHandler: callbacks.NewHandler(userService, sessionService, stateManager, logger),
		notifier:        notifier.New(botInstance, userService, sessionService, logger),
		stateManager:    stateManager,
		hub:             hub,
		logger:          logger,
	}
}

// RegisterHandlers registers commands, dialog text and inline buttons, then sets the command menu.
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/sessions", bot.MatchTypeExact, c.handlers.HandleSessions)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/invitations", bot.MatchTypeExact, c.handlers.HandleInvitations)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/book", bot.MatchTypeExact, c.handlers.HandleBook)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.handlers.HandleCancel)

	// free text feeds the open dialog, if any
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, c.handlers.HandleTextMessage)

	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.callbackHandler.HandleCallbackQuery)

	return c.setCommands(ctx)
}

func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Register with the bot"},
		{Command: "help", Description: "❓ Commands"},
		{Command: "sessions", Description: "🗓 My studio sessions"},
		{Command: "invitations", Description: "📨 Invitations to answer (students)"},
		{Command: "book", Description: "🎼 Book the studio (professors)"},
		{Command: "cancel", Description: "✖️ Abort the current dialog"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start runs the notifier and the dialog sweeper, then polls Telegram until ctx is done.
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")

	go c.notifier.Run(ctx, c.hub)
	go c.sweepDialogs(ctx)

	c.bot.Start(ctx)
	c.logger.Info("Bot stopped")
}

func (c *BotController) sweepDialogs(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.stateManager.Sweep(dialogTTL); n > 0 {
				c.logger.Debug("Expired bot dialogs dropped", zap.Int("count", n))
			}
		}
	}
}
