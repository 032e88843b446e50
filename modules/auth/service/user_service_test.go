package service

import (
	"context"
	"testing"

	coreEntity "calsync-api/core/entity"
	"calsync-api/core/errors"
	"calsync-api/modules/auth/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestUpdateSyncHorizonRejectsOutOfRange(t *testing.T) {
	user := &entity.User{
		BaseEntity:        coreEntity.BaseEntity{ID: uuid.New()},
		Email:             "me@example.com",
		SyncHorizonMonths: 1,
	}
	svc := NewUserService(&fakeUserRepo{user: user})

	for _, months := range []int{0, -1, 25} {
		_, err := svc.UpdateSyncHorizon(context.Background(), user.ID, months)
		require.True(t, errors.HasCode(err, errors.ErrInvalidInput), "months %d", months)
	}
	require.Equal(t, 1, user.SyncHorizonMonths)
}

func TestUpdateSyncHorizonPersistsValidValue(t *testing.T) {
	user := &entity.User{
		BaseEntity:        coreEntity.BaseEntity{ID: uuid.New()},
		Email:             "me@example.com",
		SyncHorizonMonths: 1,
	}
	svc := NewUserService(&fakeUserRepo{user: user})

	profile, err := svc.UpdateSyncHorizon(context.Background(), user.ID, 6)
	require.NoError(t, err)
	require.Equal(t, 6, profile.SyncHorizonMonths)
	require.Equal(t, 6, user.SyncHorizonMonths)
}
