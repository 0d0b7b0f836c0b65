package users

import "time"

// User is a registered account. Immutable after creation.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is the result of a successful login.
type Session struct {
	UserID   string
	Username string
	Token    string
}
