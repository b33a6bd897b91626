package models

import "time"

// Role is the closed set of account roles.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User is a platform account. Accounts are created either by anonymous
// signup (role forced to user) or by an administrator (any role).
// ConfirmationCode holds the one-time email secret between signup and the
// first token exchange; it is never serialized.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`

	Username         string `gorm:"size:150;not null;uniqueIndex" json:"username"`
	Email            string `gorm:"size:254;not null;uniqueIndex" json:"email"`
	FirstName        string `gorm:"size:150" json:"first_name"`
	LastName         string `gorm:"size:150" json:"last_name"`
	Bio              string `gorm:"type:text" json:"bio"`
	Role             Role   `gorm:"size:255;default:'user';index" json:"role"`
	ConfirmationCode string `gorm:"type:text" json:"-"`
	IsSuperuser      bool   `gorm:"default:false" json:"is_superuser"`
}

// IsModerator reports whether the user carries the moderator role.
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator
}

// IsAdmin reports whether the user has administrative rights. Superusers
// are treated as admins regardless of their role field.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsSuperuser
}
