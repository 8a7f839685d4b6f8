package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
	"github.com/rawatapurva/HD-Notes-App/internal/core/port"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures and foreign issuers.
	ErrInvalidToken = errors.New("jwt: invalid session token")
	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("jwt: session token expired")
	// ErrSecretMissing is returned when the manager is built without a signing secret.
	ErrSecretMissing = errors.New("jwt: signing secret is required")
)

const defaultSessionTTL = 7 * 24 * time.Hour

// SessionClaims carries the account identity inside a session token.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionTokenManager issues and verifies HS256 session tokens.
type SessionTokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokenManager builds a manager for the given secret. A non-positive
// ttl falls back to seven days.
func NewSessionTokenManager(secret, issuer string, ttl time.Duration) (*SessionTokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretMissing
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionTokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the time source for deterministic tests.
func (m *SessionTokenManager) WithClock(now func() time.Time) *SessionTokenManager {
	if now != nil {
		m.now = now
	}
	return m
}

// Mint signs a token for the subject and returns it with its expiry.
func (m *SessionTokenManager) Mint(userID, email string) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("jwt: subject is required")
	}

	issuedAt := m.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(m.ttl)

	claims := SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify checks signature, algorithm, issuer and expiry.
func (m *SessionTokenManager) Verify(token string) (domain.SessionIdentity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.SessionIdentity{}, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.SessionIdentity{}, ErrTokenExpired
		}
		return domain.SessionIdentity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return domain.SessionIdentity{}, ErrInvalidToken
	}

	identity := domain.SessionIdentity{
		UserID: claims.Subject,
		Email:  claims.Email,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

var _ port.SessionTokens = (*SessionTokenManager)(nil)
