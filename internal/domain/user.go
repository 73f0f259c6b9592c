package domain

import "time"

// User represents a registered account. Credentials are stored as a bcrypt
// hash; rotation and deletion are out of scope.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
