// Package storetest holds the behavior every session store must share. The
// in-memory store runs it in unit tests; the postgres and mongo stores run it
// under the integration build tag against real servers.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/repository"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Opener returns an empty store.
type Opener func(t *testing.T) service.SessionStore

func NewSession(studio, date, slot string, students ...int64) *model.StudioSession {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		panic(err)
	}
	s := &model.StudioSession{
		StudioID:      studio,
		StudioName:    studio,
		ProfessorID:   1,
		ProfessorName: "Paula",
		Date:          d,
		Time:          slot,
		Students:      make(map[int64]model.StudentResponse),
	}
	for _, id := range students {
		s.Students[id] = model.StudentResponse{Status: model.ResponsePending}
	}
	return s
}

// RunSessionStore runs the shared cases against stores from open.
func RunSessionStore(t *testing.T, open Opener) {
	t.Run("slots", func(t *testing.T) { testSlots(t, open(t)) })
	t.Run("conditional respond", func(t *testing.T) { testConditionalRespond(t, open(t)) })
	t.Run("conditional cancel", func(t *testing.T) { testConditionalCancel(t, open(t)) })
	t.Run("one answer wins", func(t *testing.T) { testOneAnswerWins(t, open(t)) })
	t.Run("list by studio", func(t *testing.T) { testListByStudio(t, open(t)) })
	t.Run("maintenance", func(t *testing.T) { testMaintenance(t, open(t)) })
}

func testSlots(t *testing.T, store service.SessionStore) {
	ctx := context.Background()

	first := NewSession("barra", "2025-03-10", "14:00", 11, 12)
	require.NoError(t, store.Create(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, model.SessionStatusActive, first.Status)

	got, err := store.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2025-03-10", got.DayKey())
	assert.Equal(t, []int64{11, 12}, got.StudentIDs())
	assert.Equal(t, model.ResponsePending, got.Students[11].Status)

	assert.ErrorIs(t, store.Create(ctx, NewSession("barra", "2025-03-10", "14:00", 13)), repository.ErrSlotTaken)
	require.NoError(t, store.Create(ctx, NewSession("barra", "2025-03-10", "15:00", 13)))
	require.NoError(t, store.Create(ctx, NewSession("sala-a", "2025-03-10", "14:00", 13)))

	require.NoError(t, store.Cancel(ctx, first.ID, "Studio maintenance"))
	require.NoError(t, store.Create(ctx, NewSession("barra", "2025-03-10", "14:00", 13)))

	missing, err := store.GetByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testConditionalRespond(t *testing.T, store service.SessionStore) {
	ctx := context.Background()

	s := NewSession("barra", "2025-03-11", "09:00", 11, 12)
	require.NoError(t, store.Create(ctx, s))

	require.NoError(t, store.UpdateStudentStatus(ctx, s.ID, 11, model.ResponseConfirmed))
	assert.ErrorIs(t, store.UpdateStudentStatus(ctx, s.ID, 11, model.ResponseDeclined), repository.ErrAlreadyAnswered)
	assert.ErrorIs(t, store.UpdateStudentStatus(ctx, s.ID, 11, model.ResponseConfirmed), repository.ErrAlreadyAnswered)
	assert.ErrorIs(t, store.UpdateStudentStatus(ctx, s.ID, 99, model.ResponseConfirmed), repository.ErrStudentNotInvited)
	assert.ErrorIs(t, store.UpdateStudentStatus(ctx, "missing", 11, model.ResponseConfirmed), repository.ErrNotFound)

	got, err := store.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ResponseConfirmed, got.Students[11].Status)
	assert.NotNil(t, got.Students[11].RespondedAt)
	assert.Equal(t, model.ResponsePending, got.Students[12].Status)

	require.NoError(t, store.Cancel(ctx, s.ID, ""))
	assert.ErrorIs(t, store.UpdateStudentStatus(ctx, s.ID, 12, model.ResponseConfirmed), repository.ErrSessionNotActive)

	got, err = store.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ResponsePending, got.Students[12].Status)
}

func testConditionalCancel(t *testing.T, store service.SessionStore) {
	ctx := context.Background()

	s := NewSession("barra", "2025-03-12", "09:00", 11)
	require.NoError(t, store.Create(ctx, s))

	require.NoError(t, store.Cancel(ctx, s.ID, "first"))
	assert.ErrorIs(t, store.Cancel(ctx, s.ID, "second"), repository.ErrSessionNotActive)
	assert.ErrorIs(t, store.Cancel(ctx, "missing", ""), repository.ErrNotFound)

	got, err := store.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCanceled, got.Status)
	assert.Equal(t, "first", got.CancelReason)
}

func testOneAnswerWins(t *testing.T, store service.SessionStore) {
	ctx := context.Background()

	s := NewSession("barra", "2025-03-13", "09:00", 11)
	require.NoError(t, store.Create(ctx, s))

	statuses := []model.ResponseStatus{
		model.ResponseConfirmed, model.ResponseDeclined,
		model.ResponseConfirmed, model.ResponseDeclined,
	}
	errs := make([]error, len(statuses))
	var wg sync.WaitGroup
	for i, status := range statuses {
		wg.Add(1)
		go func(i int, status model.ResponseStatus) {
			defer wg.Done()
			errs[i] = store.UpdateStudentStatus(ctx, s.ID, 11, status)
		}(i, status)
	}
	wg.Wait()

	var won []model.ResponseStatus
	for i, err := range errs {
		if err == nil {
			won = append(won, statuses[i])
			continue
		}
		assert.ErrorIs(t, err, repository.ErrAlreadyAnswered)
	}
	require.Len(t, won, 1)

	got, err := store.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, won[0], got.Students[11].Status)
}

func testListByStudio(t *testing.T, store service.SessionStore) {
	ctx := context.Background()

	a := NewSession("barra", "2025-03-10", "14:00", 11)
	b := NewSession("sala-a", "2025-03-16", "09:00", 11)
	c := NewSession("barra", "2025-03-17", "09:00", 12)
	for _, s := range []*model.StudioSession{a, b, c} {
		require.NoError(t, store.Create(ctx, s))
	}

	from, _ := time.Parse(model.DateLayout, "2025-03-10")
	to := from.AddDate(0, 0, 7)

	week, err := store.ListByStudio(ctx, "barra", from, to)
	require.NoError(t, err)
	require.Len(t, week, 1)
	assert.Equal(t, a.ID, week[0].ID)

	// an empty studio id spans every studio; the end of the range is exclusive
	all, err := store.ListByStudio(ctx, "", from, to)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids(all))

	byStudent, err := store.ListByStudent(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, ids(byStudent))
}

func testMaintenance(t *testing.T, store service.SessionStore) {
	ctx := context.Background()

	past := NewSession("barra", "2025-03-03", "09:00", 11)
	canceled := NewSession("barra", "2025-03-04", "09:00", 11)
	future := NewSession("barra", "2025-03-10", "09:00", 11)
	for _, s := range []*model.StudioSession{past, canceled, future} {
		require.NoError(t, store.Create(ctx, s))
	}
	require.NoError(t, store.Cancel(ctx, canceled.ID, ""))

	day, _ := time.Parse(model.DateLayout, "2025-03-05")
	completed, err := store.CompleteBefore(ctx, day)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, past.ID, completed[0].ID)
	assert.Equal(t, []int64{11}, completed[0].StudentIDs())

	again, err := store.CompleteBefore(ctx, day)
	require.NoError(t, err)
	assert.Empty(t, again)

	got, err := store.GetByID(ctx, canceled.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCanceled, got.Status)

	n, err := store.BackfillCreatedAt(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	got, err = store.GetByID(ctx, future.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CreatedAt)
	assert.True(t, got.CreatedAt.Equal(future.Date), got.CreatedAt)

	n, err = store.BackfillCreatedAt(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func ids(sessions []*model.StudioSession) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.ID)
	}
	return out
}
