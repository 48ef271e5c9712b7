// Package users tracks registered players and whether they have deposited.
// Records live in one Redis hash keyed by the normalised username.
package users

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidUsername is returned for missing or too short usernames.
	ErrInvalidUsername = errors.New("username must be at least 3 characters long")

	// ErrUserNotFound is returned when no record exists for a username.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidRecord indicates a stored record could not be decoded.
	ErrInvalidRecord = errors.New("invalid user record")
)

// MinUsernameLength is the shortest accepted username after trimming.
const MinUsernameLength = 3

// User is one registered player.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	HasDeposited bool      `json:"hasDeposited"`
	CreatedAt    time.Time `json:"createdAt"`
	DepositedAt  time.Time `json:"depositedAt,omitzero"`
}

// Normalize trims and lower-cases a username.
func Normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
