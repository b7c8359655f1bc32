//go:build integration

package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/app"
	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/repository"
	"github.com/Freeeeeet/studio_scheduler/internal/repository/storetest"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Run with: TEST_DB_DSN=postgres://... go test -tags integration ./internal/repository/...
func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrator, err := app.NewMigrator(pool, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { migrator.Close() })
	require.NoError(t, migrator.Run(ctx))
	return pool
}

func TestSessionRepository_Postgres(t *testing.T) {
	pool := openPool(t)

	storetest.RunSessionStore(t, func(t *testing.T) service.SessionStore {
		repo := repository.NewSessionRepository(pool, time.UTC)
		_, err := repo.DeleteAll(context.Background())
		require.NoError(t, err)
		return repo
	})
}

func TestSessionRepository_PostgresRespondRacesCancel(t *testing.T) {
	pool := openPool(t)
	ctx := context.Background()
	repo := repository.NewSessionRepository(pool, time.UTC)
	_, err := repo.DeleteAll(ctx)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		s := storetest.NewSession("barra", "2025-03-10", "14:00", 11)
		require.NoError(t, repo.Create(ctx, s))

		done := make(chan error, 1)
		go func() { done <- repo.UpdateStudentStatus(ctx, s.ID, 11, model.ResponseConfirmed) }()
		cancelErr := repo.Cancel(ctx, s.ID, "")
		respondErr := <-done

		require.NoError(t, cancelErr)
		got, err := repo.GetByID(ctx, s.ID)
		require.NoError(t, err)
		if respondErr == nil {
			assert.Equal(t, model.ResponseConfirmed, got.Students[11].Status)
			continue
		}
		// an answer that lost the race never lands on the canceled session
		assert.ErrorIs(t, respondErr, repository.ErrSessionNotActive)
		assert.Equal(t, model.ResponsePending, got.Students[11].Status)
	}
}
