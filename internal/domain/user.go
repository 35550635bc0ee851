package domain

import "time"

type User struct {
	Username     string
	PasswordHash string
	Email        string
	CreatedAt    time.Time
	Disabled     bool
}

// Client is a registered third party that may request authorization tokens
// on behalf of users. The secret is stored hashed and is only ever returned
// in plaintext once, at registration.
type Client struct {
	ID          string
	SecretHash  string
	Name        string
	Description string
	Owner       string
	CreatedAt   time.Time
	Disabled    bool
}
