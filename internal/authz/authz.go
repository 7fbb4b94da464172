// Package authz resolves what an authenticated portal user may do with a given entity.
//
// Handlers use these checks to shape responses and services use them to reject requests;
// the database remains the final authority for uniqueness and balances.
package authz

import (
	"strings"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   uint
	Role string
}

// NewActor normalises the role carried by the token.
func NewActor(id uint, role string) Actor {
	return Actor{ID: id, Role: NormalizeRole(role)}
}

// NormalizeRole lower-cases the role and defaults unknown or empty values to student.
func NormalizeRole(role string) string {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case models.RoleAdmin, models.RoleModerator, models.RoleStudent:
		return r
	default:
		return models.RoleStudent
	}
}

// Authenticated reports whether the actor carries a user id.
func (a Actor) Authenticated() bool {
	return a.ID != 0
}

// IsAdmin reports whether the actor is an administrator.
func (a Actor) IsAdmin() bool {
	return a.Authenticated() && a.Role == models.RoleAdmin
}

// IsStaff reports whether the actor moderates the community.
func (a Actor) IsStaff() bool {
	return a.Authenticated() && (a.Role == models.RoleAdmin || a.Role == models.RoleModerator)
}

// CanPin reports whether the actor may pin or unpin community messages.
func CanPin(a Actor) bool {
	return a.IsStaff()
}

// CanDeleteMessage allows the author, tracked even for anonymous posts, or any admin.
func CanDeleteMessage(m models.CommunityMessage, a Actor) bool {
	if !a.Authenticated() {
		return false
	}
	return m.AuthorID == a.ID || a.IsAdmin()
}

// CanEditMessage allows only the author.
func CanEditMessage(m models.CommunityMessage, a Actor) bool {
	return a.Authenticated() && m.AuthorID == a.ID
}

// CanReply reports whether replies may be attached to m. Threads are one level deep.
func CanReply(m models.CommunityMessage, a Actor) bool {
	return a.Authenticated() && !m.IsReply()
}

// CanManageGateways guards payment gateway credentials.
func CanManageGateways(a Actor) bool {
	return a.IsAdmin()
}

// CanManageSettings guards platform settings and wallet credits.
func CanManageSettings(a Actor) bool {
	return a.IsAdmin()
}

// CanManageContent guards blog posts and broadcast notifications.
func CanManageContent(a Actor) bool {
	return a.IsStaff()
}

// CanEditEvent allows the event creator or any admin.
func CanEditEvent(e models.Event, a Actor) bool {
	if !a.Authenticated() {
		return false
	}
	return e.CreatedBy == a.ID || a.IsAdmin()
}

// MessageCapabilities summarises the actions available to a viewer on a message.
type MessageCapabilities struct {
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanPin    bool `json:"can_pin"`
	CanReply  bool `json:"can_reply"`
}

// ForMessage resolves every message capability at once.
func ForMessage(m models.CommunityMessage, a Actor) MessageCapabilities {
	return MessageCapabilities{
		CanEdit:   CanEditMessage(m, a),
		CanDelete: CanDeleteMessage(m, a),
		CanPin:    CanPin(a),
		CanReply:  CanReply(m, a),
	}
}
