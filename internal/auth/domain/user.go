package domain

import "time"

// User is the principal record owned by the user directory. PasswordHash is
// an argon2id PHC string; the core never sees the plaintext after hashing.
type User struct {
	ID           string
	Username     string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedBy    string
	UpdatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
