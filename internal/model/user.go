package model

import "time"

const (
	RoleAdmin   = "admin"
	RoleCoach   = "coach"
	RoleStaff   = "staff"
	RoleStudent = "student"
)

// ValidRole reports whether role is one of the recognized platform roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCoach, RoleStaff, RoleStudent:
		return true
	}
	return false
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	TeamID    *int64    `json:"team_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
