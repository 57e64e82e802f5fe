package domain

import "time"

// Account is the domain model for a registered identity. The store assigns
// ID and CreatedAt; every other field is immutable after registration.
type Account struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
