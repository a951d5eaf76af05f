package models

import (
	"time"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleAdmin   UserRole = "admin"
)

// User is keyed by its natural id: the roll number for students and the
// email address for admins.
type User struct {
	UserID       string   `json:"user_id" gorm:"primaryKey;size:255"`
	FullName     string   `json:"full_name" gorm:"not null;size:100"`
	Role         UserRole `json:"role" gorm:"not null;size:20;index"`
	Email        string   `json:"email,omitempty" gorm:"size:255"`
	PasswordHash *string  `json:"-" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
