package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
	"github.com/rawatapurva/HD-Notes-App/internal/core/port"
	"github.com/rawatapurva/HD-Notes-App/internal/repository"
)

const (
	defaultOTPPrefix    = "otp"
	defaultOTPRetention = 10 * time.Minute

	fieldCodeHash  = "code_hash"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
	fieldAttempts  = "attempts"
	fieldName      = "name"
	fieldDOB       = "dob"

	dobLayout = "2006-01-02"
)

const (
	reserveMissing  = -1
	reserveExceeded = -2
)

// reserveAttemptScript increments the attempt counter only while the
// challenge exists and is below the limit.
var reserveAttemptScript = red.NewScript(`
if not redis.call('HGET', KEYS[1], 'code_hash') then
	return -1
end
local attempts = tonumber(redis.call('HGET', KEYS[1], 'attempts') or '0')
if attempts >= tonumber(ARGV[1]) then
	return -2
end
return redis.call('HINCRBY', KEYS[1], 'attempts', 1)
`)

// OTPRepository keeps one hash per email holding the current challenge.
// Keys outlive the challenge expiry by a retention window so that an expired
// challenge is still observable as expired instead of missing.
type OTPRepository struct {
	client    red.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewOTPRepository constructs a new OTP repository with the provided Redis client and key prefix.
func NewOTPRepository(client red.UniversalClient, keyPrefix string, retention time.Duration) *OTPRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultOTPPrefix
	}
	if retention <= 0 {
		retention = defaultOTPRetention
	}

	return &OTPRepository{
		client:    client,
		prefix:    prefix,
		retention: retention,
		now:       time.Now,
	}
}

// Replace drops any existing challenge for the email and writes the new one
// inside a single MULTI/EXEC block.
func (r *OTPRepository) Replace(ctx context.Context, challenge domain.OTPChallenge) error {
	email := strings.TrimSpace(challenge.Email)
	switch {
	case email == "":
		return errors.New("email is required")
	case challenge.CodeHash == "":
		return errors.New("code hash is required")
	case challenge.ExpiresAt.IsZero():
		return errors.New("expiry is required")
	}

	createdAt := challenge.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now().UTC()
	}

	ttl := challenge.ExpiresAt.Sub(r.now()) + r.retention
	if ttl <= 0 {
		ttl = r.retention
	}

	key := r.key(email)

	fields := map[string]any{
		fieldCodeHash:  challenge.CodeHash,
		fieldCreatedAt: strconv.FormatInt(createdAt.UnixMilli(), 10),
		fieldExpiresAt: strconv.FormatInt(challenge.ExpiresAt.UnixMilli(), 10),
		fieldAttempts:  "0",
	}
	if challenge.Name != "" {
		fields[fieldName] = challenge.Name
	}
	if challenge.DOB != nil {
		fields[fieldDOB] = challenge.DOB.Format(dobLayout)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis replace otp: %w", err)
	}

	return nil
}

// Get retrieves the challenge for the email.
func (r *OTPRepository) Get(ctx context.Context, email string) (*domain.OTPChallenge, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.New("email is required")
	}

	values, err := r.client.HGetAll(ctx, r.key(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall otp: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	codeHash := strings.TrimSpace(values[fieldCodeHash])
	if codeHash == "" {
		return nil, repository.ErrNotFound
	}

	createdAt, err := parseUnixMilli(values[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	expiresAt, err := parseUnixMilli(values[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	attempts := 0
	if raw := values[fieldAttempts]; raw != "" {
		if v, convErr := strconv.Atoi(raw); convErr == nil {
			attempts = v
		}
	}

	challenge := &domain.OTPChallenge{
		Email:     email,
		CodeHash:  codeHash,
		Attempts:  attempts,
		Name:      values[fieldName],
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
	if raw := values[fieldDOB]; raw != "" {
		if dob, parseErr := time.Parse(dobLayout, raw); parseErr == nil {
			challenge.DOB = &dob
		}
	}

	return challenge, nil
}

// ReserveAttempt records one verification attempt in a single script call.
func (r *OTPRepository) ReserveAttempt(ctx context.Context, email string, limit int) (int, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return 0, errors.New("email is required")
	}
	if limit <= 0 {
		return 0, errors.New("attempt limit must be positive")
	}

	count, err := reserveAttemptScript.Run(ctx, r.client, []string{r.key(email)}, limit).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis reserve otp attempt: %w", err)
	}

	switch count {
	case reserveMissing:
		return 0, repository.ErrNotFound
	case reserveExceeded:
		return 0, repository.ErrLimitExceeded
	}
	return int(count), nil
}

// Delete removes the challenge, enforcing single-use semantics. Only one of
// several concurrent callers observes a nil error; the rest get ErrNotFound.
func (r *OTPRepository) Delete(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}

	deleted, err := r.client.Del(ctx, r.key(email)).Result()
	if err != nil {
		return fmt.Errorf("redis delete otp: %w", err)
	}
	if deleted == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// WithClock overrides the internal clock, used in tests.
func (r *OTPRepository) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

func (r *OTPRepository) key(email string) string {
	return fmt.Sprintf("%s:%s", r.prefix, email)
}

func parseUnixMilli(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(v).UTC(), nil
}

var _ port.OTPStore = (*OTPRepository)(nil)
