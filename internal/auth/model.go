package auth

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Surname      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenPair is what register, login and refresh hand back to the client.
// Both tokens are also delivered as cookies; the body copy exists for
// non-browser clients.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type LoginAttempt struct {
	Email          string
	FailedAttempts int
	LockedUntil    *time.Time
}
