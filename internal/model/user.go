package model

import "time"

// Role is the access role carried in the JWT and stored on the user row
type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller of an operation
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// User represents a registered account
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
