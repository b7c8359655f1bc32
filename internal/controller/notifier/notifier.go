// Package notifier pushes session events to the Telegram chats of the people
// they concern.
package notifier

import (
	"context"

	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/studio_scheduler/internal/events"
	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Sender is the part of *bot.Bot the notifier needs.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type Notifier struct {
	sender   Sender
	users    *service.UserService
	sessions *service.SessionService
	logger   *zap.Logger
}

func New(sender Sender, users *service.UserService, sessions *service.SessionService, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender:   sender,
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

// Run handles hub events until ctx is done or the hub closes. Telegram lets
// only one process poll a bot, so every event is handled here, including
// those relayed from other instances.
func (n *Notifier) Run(ctx context.Context, hub *events.Hub) {
	ch, cancel := hub.Subscribe(64)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			n.Handle(ctx, e)
		}
	}
}

func (n *Notifier) Handle(ctx context.Context, e events.Event) {
	switch e.Kind {
	case events.KindSessionCreated:
		n.invite(ctx, e)
	case events.KindStudentResponded:
		n.reportResponse(ctx, e)
	case events.KindSessionCanceled:
		n.announceCancellation(ctx, e)
	default:
		n.logger.Debug("Event not notified", zap.String("kind", string(e.Kind)))
	}
}

// invite sends each student an invitation card with answer buttons. A failure
// for one student never stops the others.
func (n *Notifier) invite(ctx context.Context, e events.Event) {
	for _, id := range e.StudentIDs {
		student, ok := n.recipient(ctx, id)
		if !ok {
			continue
		}
		session, err := n.sessions.GetSession(ctx, student, e.SessionID)
		if err != nil {
			n.logger.Warn("Failed to load session for invitation",
				zap.Error(err),
				zap.String("session_id", e.SessionID),
				zap.Int64("student_id", id),
			)
			continue
		}
		if !session.IsActive() {
			// canceled or completed before the invitation went out
			n.logger.Debug("Skipping invitation for inactive session", zap.String("session_id", e.SessionID))
			return
		}

		status, _ := session.StudentStatus(student.ID)
		card := service.Notification{
			Session:    session,
			MyStatus:   status,
			CanRespond: session.IsActive() && status == model.ResponsePending,
		}
		var kb *models.InlineKeyboardMarkup
		if card.CanRespond {
			kb = keyboard.RespondButtons(session.ID)
		}
		n.send(ctx, student, "📨 <b>New studio invitation</b>\n\n"+formatting.FormatInvitationCard(card), kb)
	}
}

func (n *Notifier) reportResponse(ctx context.Context, e events.Event) {
	professor, ok := n.recipient(ctx, e.ProfessorID)
	if !ok {
		return
	}
	session, err := n.sessions.GetSession(ctx, professor, e.SessionID)
	if err != nil {
		n.logger.Warn("Failed to load session for response notice", zap.Error(err), zap.String("session_id", e.SessionID))
		return
	}

	name := "A student"
	if student, err := n.users.GetByID(ctx, e.StudentID); err == nil {
		name = student.DisplayName()
	}
	n.send(ctx, professor, formatting.FormatResponseNotice(session, name, model.ResponseStatus(e.Status)), nil)
}

func (n *Notifier) announceCancellation(ctx context.Context, e events.Event) {
	for _, id := range e.StudentIDs {
		student, ok := n.recipient(ctx, id)
		if !ok {
			continue
		}
		session, err := n.sessions.GetSession(ctx, student, e.SessionID)
		if err != nil {
			n.logger.Warn("Failed to load session for cancellation",
				zap.Error(err),
				zap.String("session_id", e.SessionID),
				zap.Int64("student_id", id),
			)
			continue
		}
		n.send(ctx, student, formatting.FormatCancellationNotice(session), nil)
	}
}

// recipient returns users that have linked a Telegram chat.
func (n *Notifier) recipient(ctx context.Context, userID int64) (*model.User, bool) {
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		n.logger.Warn("Failed to load recipient", zap.Error(err), zap.Int64("user_id", userID))
		return nil, false
	}
	return user, user.TelegramID != 0
}

func (n *Notifier) send(ctx context.Context, to *model.User, text string, kb *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    to.TelegramID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := n.sender.SendMessage(ctx, params); err != nil {
		n.logger.Warn("Failed to notify user",
			zap.Error(err),
			zap.Int64("user_id", to.ID),
			zap.Int64("telegram_id", to.TelegramID),
		)
	}
}
