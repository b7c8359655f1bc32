package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/events"
	"github.com/Freeeeeet/studio_scheduler/internal/model"
)

// SessionStore is implemented by the postgres, mongo and in-memory repositories.
type SessionStore interface {
	Create(ctx context.Context, s *model.StudioSession) error
	GetByID(ctx context.Context, id string) (*model.StudioSession, error)
	ListByProfessor(ctx context.Context, professorID int64) ([]*model.StudioSession, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*model.StudioSession, error)
	ListByStudio(ctx context.Context, studioID string, from, to time.Time) ([]*model.StudioSession, error)
	UpdateStudentStatus(ctx context.Context, sessionID string, studentID int64, status model.ResponseStatus) error
	Cancel(ctx context.Context, sessionID, reason string) error
	CompleteBefore(ctx context.Context, day time.Time) ([]*model.StudioSession, error)
	DeleteAll(ctx context.Context) (int64, error)
	BackfillCreatedAt(ctx context.Context, force bool) (int64, error)
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	ListStudents(ctx context.Context, search string) ([]*model.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
}

type Publisher interface {
	Publish(e events.Event)
}

// PendingCache is the optional pending-count cache. Set must refuse a count
// whose generation was invalidated after Generation returned it.
type PendingCache interface {
	Get(ctx context.Context, studentID int64) (int, bool, error)
	Generation(ctx context.Context, studentID int64) (string, error)
	Set(ctx context.Context, studentID int64, n int, gen string) error
	Invalidate(ctx context.Context, studentIDs ...int64) error
	InvalidateAll(ctx context.Context) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) {}
