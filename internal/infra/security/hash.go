package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/rawatapurva/HD-Notes-App/internal/core/port"
)

// BcryptHasher hashes one-time codes with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher clamps the cost into bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(code string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}
	return string(hashed), nil
}

// Compare reports whether code matches hash. A mismatch is not an error.
func (h *BcryptHasher) Compare(hash, code string) (bool, error) {
	if hash == "" || code == "" {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare code hash: %w", err)
	}
}

var _ port.CodeHasher = (*BcryptHasher)(nil)
