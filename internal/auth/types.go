package auth

import (
	"errors"
	"regexp"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Role represents an authorisation tier on the gateway API.
type Role string

const (
	// RoleViewer can inspect datapoint types, bindings and live values.
	RoleViewer Role = "viewer"

	// RoleOperator can also write values to the bus.
	RoleOperator Role = "operator"

	// RoleAdmin can also manage bindings.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles an account may hold.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole returns true if r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Account is an API identity loaded from configuration.
type Account struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // never serialised
	Role         Role   `json:"role"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("insufficient permissions")
)
