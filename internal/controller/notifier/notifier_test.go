package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/events"
	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/repository/inmem"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []*bot.SendMessageParams
	blocked map[int64]bool
}

func (f *fakeSender) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, _ := p.ChatID.(int64); f.blocked[id] {
		return nil, errors.New("Forbidden: bot was blocked by the user")
	}
	f.sent = append(f.sent, p)
	return &models.Message{}, nil
}

func (f *fakeSender) messages() []*bot.SendMessageParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*bot.SendMessageParams(nil), f.sent...)
}

type fixture struct {
	notifier  *Notifier
	sender    *fakeSender
	sessions  *service.SessionService
	users     *service.UserService
	hub       *events.Hub
	professor *model.User
	s1, s2    *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db := inmem.Open()
	userRepo := inmem.NewUserRepository(db)
	f := &fixture{
		sender:    &fakeSender{},
		hub:       events.NewHub(zap.NewNop()),
		professor: &model.User{FirstName: "Paula", TelegramID: 100, Role: model.RoleProfessor},
		s1:        &model.User{FirstName: "Sofía", TelegramID: 101, Role: model.RoleStudent},
		s2:        &model.User{FirstName: "Santi", Role: model.RoleStudent},
	}
	for _, u := range []*model.User{f.professor, f.s1, f.s2} {
		require.NoError(t, userRepo.Create(ctx, u))
	}

	catalog, err := service.NewStudioCatalog(nil)
	require.NoError(t, err)
	f.sessions = service.NewSessionService(inmem.NewSessionRepository(db), userRepo, catalog, f.hub, time.UTC, zap.NewNop())
	f.sessions.SetClock(func() time.Time { return time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC) })
	f.users = service.NewUserService(userRepo, zap.NewNop())

	f.notifier = New(f.sender, f.users, f.sessions, zap.NewNop())
	return f
}

func TestNotifier_Workflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, cancel := f.hub.Subscribe(8)
	defer cancel()
	next := func() events.Event {
		select {
		case e := <-ch:
			return e
		case <-time.After(time.Second):
			t.Fatal("no event")
			return events.Event{}
		}
	}

	session, err := f.sessions.CreateSession(ctx, f.professor, service.CreateSessionInput{
		StudioID: "barra", Date: "2025-03-10", Time: "14:00", StudentIDs: []int64{f.s1.ID, f.s2.ID},
	})
	require.NoError(t, err)
	f.notifier.Handle(ctx, next())

	// s2 has no Telegram chat
	sent := f.sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(101), sent[0].ChatID)
	assert.Contains(t, sent[0].Text, "New studio invitation")
	kb, ok := sent[0].ReplyMarkup.(*models.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "respond:"+session.ID+":confirmed", kb.InlineKeyboard[0][0].CallbackData)

	_, err = f.sessions.Respond(ctx, f.s1, session.ID, model.ResponseConfirmed)
	require.NoError(t, err)
	f.notifier.Handle(ctx, next())

	sent = f.sender.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, int64(100), sent[1].ChatID)
	assert.Contains(t, sent[1].Text, "<b>Sofía</b> confirmed")

	_, err = f.sessions.CancelSession(ctx, f.professor, session.ID, "Studio maintenance")
	require.NoError(t, err)
	f.notifier.Handle(ctx, next())

	sent = f.sender.messages()
	require.Len(t, sent, 3)
	assert.Equal(t, int64(101), sent[2].ChatID)
	assert.Contains(t, sent[2].Text, "Reason: Studio maintenance")
	assert.Nil(t, sent[2].ReplyMarkup)
}

func TestNotifier_RunStopsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.notifier.Run(ctx, f.hub)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notifier did not stop")
	}
}

func chatIDs(sent []*bot.SendMessageParams) []int64 {
	var ids []int64
	for _, p := range sent {
		id, _ := p.ChatID.(int64)
		ids = append(ids, id)
	}
	return ids
}

func TestNotifier_FailingRecipientDoesNotStopOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outsider := &model.User{FirstName: "Olga", TelegramID: 102, Role: model.RoleStudent}
	blocked := &model.User{FirstName: "Bruno", TelegramID: 103, Role: model.RoleStudent}
	require.NoError(t, f.users.CreateUser(ctx, outsider))
	require.NoError(t, f.users.CreateUser(ctx, blocked))
	f.sender.blocked = map[int64]bool{blocked.TelegramID: true}

	session, err := f.sessions.CreateSession(ctx, f.professor, service.CreateSessionInput{
		StudioID: "barra", Date: "2025-03-10", Time: "14:00", StudentIDs: []int64{blocked.ID, f.s1.ID},
	})
	require.NoError(t, err)

	// the outsider cannot see the session, the blocked chat rejects the
	// message, and an unknown id has no roster entry
	f.notifier.Handle(ctx, events.Event{
		Kind:       events.KindSessionCreated,
		SessionID:  session.ID,
		StudentIDs: []int64{outsider.ID, blocked.ID, 9999, f.s1.ID},
	})
	assert.Equal(t, []int64{101}, chatIDs(f.sender.messages()))

	_, err = f.sessions.CancelSession(ctx, f.professor, session.ID, "")
	require.NoError(t, err)
	f.notifier.Handle(ctx, events.Event{
		Kind:       events.KindSessionCanceled,
		SessionID:  session.ID,
		StudentIDs: []int64{outsider.ID, blocked.ID, f.s1.ID},
	})
	assert.Equal(t, []int64{101, 101}, chatIDs(f.sender.messages()))
}

func TestNotifier_SkipsInvitationForInactiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.sessions.CreateSession(ctx, f.professor, service.CreateSessionInput{
		StudioID: "barra", Date: "2025-03-10", Time: "14:00", StudentIDs: []int64{f.s1.ID},
	})
	require.NoError(t, err)
	_, err = f.sessions.CancelSession(ctx, f.professor, session.ID, "")
	require.NoError(t, err)

	// the creation event is handled after the cancel already happened
	f.notifier.Handle(ctx, events.Event{
		Kind:       events.KindSessionCreated,
		SessionID:  session.ID,
		StudentIDs: []int64{f.s1.ID},
	})
	assert.Empty(t, f.sender.messages())
}
