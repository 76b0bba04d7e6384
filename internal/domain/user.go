package domain

import "time"

// Role classifies what a user is allowed to do. It is a closed set;
// new capabilities belong here, not in string comparisons at call sites.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether the role is a known member of the set.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// CanListUsers reports whether the role may read the user directory.
func (r Role) CanListUsers() bool {
	return r == RoleAdmin
}

// CanViewAttempts reports whether the role may read the login attempt log.
func (r Role) CanViewAttempts() bool {
	return r == RoleAdmin
}

// User represents an authenticated user of the panel.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
