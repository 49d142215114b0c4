package models

import "time"

// User is a registered account. Username and email are jointly unique, the
// confirmation code is stored as a bcrypt hash and cleared once exchanged.
type User struct {
	ID                    uint       `gorm:"primarykey"`
	Username              string     `gorm:"size:150;not null;unique;uniqueIndex:idx_users_email_username,priority:2"`
	Email                 string     `gorm:"size:254;not null;uniqueIndex:idx_users_email_username,priority:1"`
	FirstName             string     `gorm:"size:150"`
	LastName              string     `gorm:"size:150"`
	Bio                   string     `gorm:"type:text"`
	Role                  Role       `gorm:"size:16;not null;default:user"`
	IsSuperuser           bool       `gorm:"not null;default:false"`
	IsActive              bool       `gorm:"not null;default:false"`
	Password              string     `gorm:"size:128" json:"-"` // only set for superusers created from the CLI
	ConfirmationCode      string     `gorm:"size:100" json:"-"`
	ConfirmationExpiresAt *time.Time `json:"-"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsAdmin reports whether the user may manage the catalog and other users.
func (u *User) IsAdmin() bool {
	return u != nil && (u.Role == RoleAdmin || u.IsSuperuser)
}

// IsModerator reports whether the user moderates reviews and comments.
func (u *User) IsModerator() bool {
	return u != nil && u.Role == RoleModerator
}
