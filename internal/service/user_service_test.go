package service

import (
	"context"
	"testing"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/repository/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserService_RegisterTelegramUser(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(inmem.NewUserRepository(inmem.Open()), zap.NewNop())

	u, err := svc.RegisterTelegramUser(ctx, 1001, "sofi", "Sofía", "")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, u.Role)

	again, err := svc.RegisterTelegramUser(ctx, 1001, "sofi_v", "Sofía", "Vega")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	got, err := svc.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sofía Vega", got.DisplayName())

	_, err = svc.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	missing, err := svc.GetByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserService_RolesAndRoster(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(inmem.NewUserRepository(inmem.Open()), zap.NewNop())

	prof := &model.User{FirstName: "Paula", Role: model.RoleProfessor}
	require.NoError(t, svc.CreateUser(ctx, prof))
	for _, u := range []*model.User{
		{FirstName: "Sofía", Instrument: "Violin"},
		{FirstName: "Santi", Instrument: "Cello", Email: "santi@example.com"},
	} {
		require.NoError(t, svc.CreateUser(ctx, u))
	}

	assert.ErrorIs(t, svc.CreateUser(ctx, &model.User{}), ErrValidation)
	assert.ErrorIs(t, svc.CreateUser(ctx, &model.User{FirstName: "X", Role: "guest"}), ErrValidation)

	all, err := svc.ListStudents(ctx, prof, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := svc.ListStudents(ctx, prof, " VIOL ")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Sofía", found[0].FirstName)

	_, err = svc.ListStudents(ctx, all[0], "")
	assert.ErrorIs(t, err, ErrForbidden)

	promoted, err := svc.SetRole(ctx, all[0].ID, model.RoleProfessor)
	require.NoError(t, err)
	assert.True(t, promoted.CanBook())

	_, err = svc.SetRole(ctx, all[0].ID, "root")
	assert.ErrorIs(t, err, ErrValidation)
}
