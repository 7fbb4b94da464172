package models

import "time"

// Portal roles carried by profiles and JWT claims.
const (
	RoleStudent   = "student"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Profile is the display record for a portal user. Authentication lives elsewhere.
type Profile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FullName   string    `gorm:"size:160;not null" json:"full_name"`
	Email      string    `gorm:"size:160;uniqueIndex" json:"email"`
	AvatarURL  string    `gorm:"size:512" json:"avatar_url"`
	Role       string    `gorm:"size:32;not null;default:'student';index" json:"role"`
	Faculty    string    `gorm:"size:128" json:"faculty"`
	Department string    `gorm:"size:128" json:"department"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
