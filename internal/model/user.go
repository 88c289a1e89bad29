package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the campus role a user holds. Role targeting resolves against it.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleStaff   Role = "STAFF"
	RoleStudent Role = "STUDENT"
)

// User is the slice of the campus user entity the notification engine needs:
// identity for target resolution and role for role-targeted fan-outs. The
// rest of the user surface (profiles, academic records) lives elsewhere.
type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password  string    `json:"-" gorm:"size:255"`
	Role      Role      `json:"role" gorm:"size:20;not null;default:'STUDENT';index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserResponse is the safe version of User for API responses
type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

// ToResponse converts User to safe UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
