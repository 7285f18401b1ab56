package models

import "time"

// User represents an account that can author questions or review gradings.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:32;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	// RoleTeacher identifies accounts allowed to author questions and review gradings.
	RoleTeacher = "teacher"
	// RoleAdmin identifies accounts with full access.
	RoleAdmin = "admin"
)

// IsReviewer reports whether the user may accept or decline AI gradings.
func (u User) IsReviewer() bool {
	return u.Role == RoleTeacher || u.Role == RoleAdmin
}
