package inmem

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/repository"
	"github.com/Freeeeeet/studio_scheduler/internal/repository/storetest"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(studio, date, slot string, students ...int64) *model.StudioSession {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		panic(err)
	}
	s := &model.StudioSession{
		StudioID:    studio,
		ProfessorID: 1,
		Date:        d,
		Time:        slot,
		Students:    make(map[int64]model.StudentResponse),
	}
	for _, id := range students {
		s.Students[id] = model.StudentResponse{Status: model.ResponseConfirmed}
	}
	return s
}

func TestSessionRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(Open())

	s := newSession("barra", "2025-03-10", "14:00", 11, 12)
	require.NoError(t, repo.Create(ctx, s))

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, model.SessionStatusActive, s.Status)
	require.NotNil(t, s.CreatedAt)

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, map[int64]model.StudentResponse{
		11: {Status: model.ResponsePending},
		12: {Status: model.ResponsePending},
	}, got.Students)

	tests := []struct {
		name    string
		session *model.StudioSession
		wantErr error
	}{
		{"same slot", newSession("barra", "2025-03-10", "14:00", 13), repository.ErrSlotTaken},
		{"no students", newSession("barra", "2025-03-10", "15:00"), repository.ErrInvalidSession},
		{"no studio", newSession("", "2025-03-10", "15:00", 13), repository.ErrInvalidSession},
		{"other studio", newSession("sala-a", "2025-03-10", "14:00", 13), nil},
		{"other time", newSession("barra", "2025-03-10", "15:00", 13), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.session)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSessionRepository_CancelFreesSlot(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(Open())

	first := newSession("barra", "2025-03-10", "14:00", 11)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Cancel(ctx, first.ID, "Studio maintenance"))

	second := newSession("barra", "2025-03-10", "14:00", 12)
	require.NoError(t, repo.Create(ctx, second))

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCanceled, got.Status)
	assert.Equal(t, "Studio maintenance", got.CancelReason)

	assert.ErrorIs(t, repo.Cancel(ctx, "missing", "x"), repository.ErrNotFound)
	assert.ErrorIs(t, repo.Cancel(ctx, first.ID, "again"), repository.ErrSessionNotActive)

	got, err = repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Studio maintenance", got.CancelReason)
}

func TestSessionRepository_UpdateStudentStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(Open())

	s := newSession("barra", "2025-03-10", "14:00", 11, 12)
	require.NoError(t, repo.Create(ctx, s))

	require.NoError(t, repo.UpdateStudentStatus(ctx, s.ID, 11, model.ResponseConfirmed))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ResponseConfirmed, got.Students[11].Status)
	assert.NotNil(t, got.Students[11].RespondedAt)
	assert.Equal(t, model.ResponsePending, got.Students[12].Status)
	assert.Equal(t, []int64{11, 12}, got.StudentIDs())

	assert.ErrorIs(t, repo.UpdateStudentStatus(ctx, "missing", 11, model.ResponseConfirmed), repository.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateStudentStatus(ctx, s.ID, 99, model.ResponseConfirmed), repository.ErrStudentNotInvited)
	assert.ErrorIs(t, repo.UpdateStudentStatus(ctx, s.ID, 11, model.ResponseDeclined), repository.ErrAlreadyAnswered)
	assert.ErrorIs(t, repo.UpdateStudentStatus(ctx, s.ID, 11, model.ResponseConfirmed), repository.ErrAlreadyAnswered)

	require.NoError(t, repo.Cancel(ctx, s.ID, ""))
	assert.ErrorIs(t, repo.UpdateStudentStatus(ctx, s.ID, 12, model.ResponseConfirmed), repository.ErrSessionNotActive)

	got, err = repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 12}, got.StudentIDs())
	assert.Equal(t, model.ResponseConfirmed, got.Students[11].Status)
	assert.Equal(t, model.ResponsePending, got.Students[12].Status)
}

func TestSessionRepository_UpdateStudentStatusOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(Open())

	s := newSession("barra", "2025-03-10", "14:00", 11)
	require.NoError(t, repo.Create(ctx, s))

	answers := []model.ResponseStatus{model.ResponseConfirmed, model.ResponseDeclined}
	errs := make(chan error, 2*len(answers))
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		for _, status := range answers {
			wg.Add(1)
			go func(status model.ResponseStatus) {
				defer wg.Done()
				errs <- repo.UpdateStudentStatus(ctx, s.ID, 11, status)
			}(status)
		}
	}
	wg.Wait()
	close(errs)

	won := 0
	for err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrAlreadyAnswered)
	}
	assert.Equal(t, 1, won)
}

func TestSessionRepository_Lists(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(Open())

	a := newSession("barra", "2025-03-10", "14:00", 11)
	b := newSession("sala-a", "2025-03-12", "09:00", 11, 12)
	c := newSession("barra", "2025-03-20", "09:00", 12)
	c.ProfessorID = 2
	for _, s := range []*model.StudioSession{a, b, c} {
		require.NoError(t, repo.Create(ctx, s))
	}

	byProf, err := repo.ListByProfessor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byProf, 2)
	assert.Equal(t, b.ID, byProf[0].ID)

	byStudent, err := repo.ListByStudent(ctx, 12)
	require.NoError(t, err)
	require.Len(t, byStudent, 2)
	assert.Equal(t, c.ID, byStudent[0].ID)

	from, _ := time.Parse(model.DateLayout, "2025-03-10")
	to := from.AddDate(0, 0, 7)
	week, err := repo.ListByStudio(ctx, "barra", from, to)
	require.NoError(t, err)
	require.Len(t, week, 1)
	assert.Equal(t, a.ID, week[0].ID)

	all, err := repo.ListByStudio(ctx, "", from, to)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSessionRepository_Maintenance(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(Open())

	legacy := newSession("barra", "2025-01-05", "10:00", 11)
	legacy.ID = "legacy"
	legacy.Status = model.SessionStatusActive
	repo.Insert(legacy)

	fresh := newSession("barra", "2025-03-10", "10:00", 11)
	require.NoError(t, repo.Create(ctx, fresh))

	n, err := repo.BackfillCreatedAt(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(ctx, "legacy")
	require.NoError(t, err)
	require.NotNil(t, got.CreatedAt)
	assert.Equal(t, "2025-01-05", got.CreatedAt.Format(model.DateLayout))

	n, err = repo.BackfillCreatedAt(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	cutoff, _ := time.Parse(model.DateLayout, "2025-02-01")
	completed, err := repo.CompleteBefore(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "legacy", completed[0].ID)
	assert.Equal(t, model.SessionStatusCompleted, completed[0].Status)

	n, err = repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err = repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionRepository_Contract(t *testing.T) {
	storetest.RunSessionStore(t, func(t *testing.T) service.SessionStore {
		return NewSessionRepository(Open())
	})
}
