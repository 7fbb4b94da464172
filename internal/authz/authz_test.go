package authz

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

func TestNewActorNormalisesRole(t *testing.T) {
	require.Equal(t, models.RoleAdmin, NewActor(1, " Admin ").Role)
	require.Equal(t, models.RoleModerator, NewActor(1, "MODERATOR").Role)
	require.Equal(t, models.RoleStudent, NewActor(1, "").Role)
	require.Equal(t, models.RoleStudent, NewActor(1, "superuser").Role)
}

func TestMessageCapabilities(t *testing.T) {
	parentID := uint(1)
	topLevel := models.CommunityMessage{ID: 1, AuthorID: 10}
	reply := models.CommunityMessage{ID: 2, AuthorID: 11, ParentID: &parentID}
	anonymous := models.CommunityMessage{ID: 3, AuthorID: 12, IsAnonymous: true}

	cases := []struct {
		name    string
		message models.CommunityMessage
		actor   Actor
		want    MessageCapabilities
	}{
		{"author on own post", topLevel, NewActor(10, "student"), MessageCapabilities{CanEdit: true, CanDelete: true, CanReply: true}},
		{"stranger", topLevel, NewActor(99, "student"), MessageCapabilities{CanReply: true}},
		{"moderator pins but cannot delete", topLevel, NewActor(50, "moderator"), MessageCapabilities{CanPin: true, CanReply: true}},
		{"admin deletes and pins", topLevel, NewActor(1, "admin"), MessageCapabilities{CanDelete: true, CanPin: true, CanReply: true}},
		{"reply cannot be replied to", reply, NewActor(11, "student"), MessageCapabilities{CanEdit: true, CanDelete: true}},
		{"anonymous author keeps ownership", anonymous, NewActor(12, "student"), MessageCapabilities{CanEdit: true, CanDelete: true, CanReply: true}},
		{"unauthenticated", topLevel, Actor{}, MessageCapabilities{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ForMessage(tc.message, tc.actor))
		})
	}
}

func TestCanEditEvent(t *testing.T) {
	event := models.Event{ID: 1, CreatedBy: 7}
	require.True(t, CanEditEvent(event, NewActor(7, "student")))
	require.True(t, CanEditEvent(event, NewActor(1, "admin")))
	require.False(t, CanEditEvent(event, NewActor(8, "moderator")))
}

func TestAdminOnlyCapabilities(t *testing.T) {
	require.True(t, CanManageGateways(NewActor(1, "admin")))
	require.False(t, CanManageGateways(NewActor(2, "moderator")))
	require.True(t, CanManageContent(NewActor(2, "moderator")))
	require.False(t, CanManageSettings(NewActor(3, "student")))
}
