package security

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
	"github.com/rawatapurva/HD-Notes-App/internal/core/port"
)

var (
	// ErrGoogleNotConfigured is returned when no OAuth client id is set.
	ErrGoogleNotConfigured = errors.New("google: client id not configured")
	// ErrGoogleEmailMissing is returned when the verified token carries no usable email.
	ErrGoogleEmailMissing = errors.New("google: token has no verified email")
)

type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleVerifier validates Google ID tokens against the configured client id.
type GoogleVerifier struct {
	clientID string
	validate validateFunc
}

// NewGoogleVerifier builds a verifier backed by Google's public certificates.
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	validator, err := idtoken.NewValidator(ctx, option.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}))
	if err != nil {
		return nil, fmt.Errorf("google: init validator: %w", err)
	}
	return &GoogleVerifier{clientID: strings.TrimSpace(clientID), validate: validator.Validate}, nil
}

// Verify returns the identity claims of a valid token.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (domain.GoogleIdentity, error) {
	if v.clientID == "" {
		return domain.GoogleIdentity{}, ErrGoogleNotConfigured
	}

	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return domain.GoogleIdentity{}, fmt.Errorf("google: validate id token: %w", err)
	}

	identity := domain.GoogleIdentity{
		Subject:       payload.Subject,
		Email:         claimString(payload.Claims, "email"),
		EmailVerified: claimBool(payload.Claims, "email_verified"),
		Name:          claimString(payload.Claims, "name"),
	}
	if identity.Email == "" || !identity.EmailVerified {
		return domain.GoogleIdentity{}, ErrGoogleEmailMissing
	}

	return identity, nil
}

func claimString(claims map[string]any, key string) string {
	if v, ok := claims[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// Google encodes email_verified as a bool, though some issuers send a string.
func claimBool(claims map[string]any, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

var _ port.IdentityVerifier = (*GoogleVerifier)(nil)
