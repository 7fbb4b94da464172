package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

func TestProfileServiceMe(t *testing.T) {
	db := setupServiceDB(t, &models.Profile{})
	require.NoError(t, db.Create(&models.Profile{ID: 3, FullName: "Grace Hopper", Email: "grace@campus.test", Role: "Moderator"}).Error)
	svc := NewProfileService(repository.NewProfileRepository(db), testLogger())
	ctx := context.Background()

	me, err := svc.Me(ctx, authz.NewActor(3, models.RoleModerator))
	require.NoError(t, err)
	require.Equal(t, "Grace Hopper", me.FullName)
	require.Equal(t, models.RoleModerator, me.Role)
	require.True(t, me.IsModerator)
	require.False(t, me.IsAdmin)
	require.False(t, me.ProfileMissing)

	fallback, err := svc.Me(ctx, authz.NewActor(42, models.RoleAdmin))
	require.NoError(t, err)
	require.True(t, fallback.ProfileMissing)
	require.Equal(t, models.RoleStudent, fallback.Role)
	require.Equal(t, uint(42), fallback.ID)

	_, err = svc.Me(ctx, authz.Actor{})
	require.ErrorIs(t, err, ErrUnauthenticated)
}
