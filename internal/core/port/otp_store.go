package port

import (
	"context"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
)

// OTPStore keeps at most one live challenge per email.
type OTPStore interface {
	// Replace atomically discards any existing challenge for the email and
	// stores the new one with zero attempts.
	Replace(ctx context.Context, challenge domain.OTPChallenge) error
	Get(ctx context.Context, email string) (*domain.OTPChallenge, error)
	// ReserveAttempt atomically counts one verification attempt and returns
	// the new total. It fails with repository.ErrLimitExceeded once limit
	// attempts were already recorded and with repository.ErrNotFound when no
	// challenge exists.
	ReserveAttempt(ctx context.Context, email string, limit int) (int, error)
	// Delete returns repository.ErrNotFound when nothing was removed, which
	// lets exactly one concurrent verifier consume a challenge.
	Delete(ctx context.Context, email string) error
}
