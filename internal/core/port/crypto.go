package port

import (
	"context"
	"time"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
)

// CodeGenerator produces numeric one-time codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// CodeHasher hashes one-time codes with a salted slow hash.
type CodeHasher interface {
	Hash(code string) (string, error)
	Compare(hash, code string) (bool, error)
}

// SessionTokens mints and verifies signed session tokens.
type SessionTokens interface {
	Mint(userID, email string) (string, time.Time, error)
	Verify(token string) (domain.SessionIdentity, error)
}

// IdentityVerifier validates third-party ID tokens.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (domain.GoogleIdentity, error)
}

// OTPNotifier delivers a one-time code to its recipient.
type OTPNotifier interface {
	SendOTP(ctx context.Context, email, code string, ttl time.Duration) error
}
