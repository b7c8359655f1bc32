package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/repository/inmem"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCounter(t *testing.T) (*PendingCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewPendingCounter(client, 10*time.Minute), mr
}

func TestPendingCounter_Disabled(t *testing.T) {
	ctx := context.Background()
	c := NewPendingCounter(nil, 0)
	assert.Equal(t, 10*time.Minute, c.ttl)

	gen, err := c.Generation(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, 7, 3, gen))

	_, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, c.Invalidate(ctx, 7, 8))
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "studio_scheduler:pending:count:42", countKey(42))
	assert.Equal(t, "studio_scheduler:pending:gen:42", genKey(42))
}

func TestPendingCounter_GenerationGuardsSet(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCounter(t)

	gen, err := c.Generation(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "0:0", gen)

	require.NoError(t, c.Set(ctx, 7, 3, gen))
	n, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Equal(t, 10*time.Minute, mr.TTL(countKey(7)))

	require.NoError(t, c.Invalidate(ctx, 7))
	_, ok, err = c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, genTTL, mr.TTL(genKey(7)))

	// a count computed before the invalidation is dropped
	require.NoError(t, c.Set(ctx, 7, 3, gen))
	_, ok, err = c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	fresh, err := c.Generation(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "0:1", fresh)
	require.NoError(t, c.Set(ctx, 7, 2, fresh))
	n, _, err = c.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// other students keep their own generation
	require.NoError(t, c.Invalidate(ctx, 8))
	n, ok, err = c.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, n)
}

func TestPendingCounter_InvalidateAll(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCounter(t)

	for _, id := range []int64{7, 8} {
		gen, err := c.Generation(ctx, id)
		require.NoError(t, err)
		require.NoError(t, c.Set(ctx, id, 1, gen))
	}
	stale, err := c.Generation(ctx, 7)
	require.NoError(t, err)

	require.NoError(t, c.InvalidateAll(ctx))
	assert.False(t, mr.Exists(countKey(7)))
	assert.False(t, mr.Exists(countKey(8)))

	require.NoError(t, c.Set(ctx, 7, 1, stale))
	assert.False(t, mr.Exists(countKey(7)))

	gen, err := c.Generation(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "1:0", gen)
}

// answeringStore lets the student answer after the count was read from the
// store but before it reaches the cache.
type answeringStore struct {
	service.SessionStore
	answer func()
}

func (s *answeringStore) ListByStudent(ctx context.Context, studentID int64) ([]*model.StudioSession, error) {
	sessions, err := s.SessionStore.ListByStudent(ctx, studentID)
	if s.answer != nil {
		answer := s.answer
		s.answer = nil
		answer()
	}
	return sessions, err
}

func TestPendingCounter_NoStaleCountAfterAnswer(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCounter(t)

	db := inmem.Open()
	users := inmem.NewUserRepository(db)
	professor := &model.User{FirstName: "Paula", Role: model.RoleProfessor}
	student := &model.User{FirstName: "Sofía", Role: model.RoleStudent}
	require.NoError(t, users.Create(ctx, professor))
	require.NoError(t, users.Create(ctx, student))

	catalog, err := service.NewStudioCatalog(nil)
	require.NoError(t, err)
	store := &answeringStore{SessionStore: inmem.NewSessionRepository(db)}
	svc := service.NewSessionService(store, users, catalog, nil, time.UTC, zap.NewNop())
	svc.SetPendingCache(c)
	now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })

	session, err := svc.CreateSession(ctx, professor, service.CreateSessionInput{
		StudioID:   "barra",
		Date:       "2025-03-10",
		Time:       "14:00",
		StudentIDs: []int64{student.ID},
	})
	require.NoError(t, err)

	store.answer = func() {
		_, err := svc.Respond(ctx, student, session.ID, model.ResponseConfirmed)
		require.NoError(t, err)
	}
	n, err := svc.PendingInviteCount(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.PendingInviteCount(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
