package domain

import "time"

// AuthProvider records how an account was first created.
type AuthProvider string

const (
	ProviderEmail  AuthProvider = "email"
	ProviderGoogle AuthProvider = "google"
)

// User mirrors the persisted representation in the users table.
type User struct {
	ID        string
	Email     string
	Name      string
	DOB       *time.Time
	Provider  AuthProvider
	GoogleID  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OTPChallenge is a pending one-time passcode for an email address. Only the
// hash of the code is stored. Name and DOB carry the signup profile submitted
// with the request so verification can create the account without resending it.
type OTPChallenge struct {
	Email     string
	CodeHash  string
	Attempts  int
	Name      string
	DOB       *time.Time
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the challenge is past its expiry at the given instant.
// The expiry instant itself still counts as valid.
func (c OTPChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// GoogleIdentity holds the verified claims of a Google ID token.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// SessionIdentity is the subject extracted from a verified session token.
type SessionIdentity struct {
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
