package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
	"github.com/rawatapurva/HD-Notes-App/internal/repository"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *red.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := red.NewClient(&red.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestOTPRepositoryReplaceAndGet(t *testing.T) {
	mr, client := newTestRedis(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	repo := NewOTPRepository(client, "notes:otp", 10*time.Minute)
	repo.WithClock(func() time.Time { return now })

	ctx := context.Background()
	dob := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	challenge := domain.OTPChallenge{
		Email:     "jane@example.com",
		CodeHash:  "hash-1",
		Name:      "Jane Doe",
		DOB:       &dob,
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
	if err := repo.Replace(ctx, challenge); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}

	if ttl := mr.TTL("notes:otp:jane@example.com"); ttl != 15*time.Minute {
		t.Fatalf("expected key ttl of expiry plus retention, got %s", ttl)
	}

	got, err := repo.Get(ctx, "jane@example.com")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.CodeHash != "hash-1" || got.Attempts != 0 {
		t.Fatalf("unexpected challenge: %+v", got)
	}
	if !got.ExpiresAt.Equal(challenge.ExpiresAt) {
		t.Fatalf("unexpected expiry: %s", got.ExpiresAt)
	}
	if got.Name != "Jane Doe" || got.DOB == nil || !got.DOB.Equal(dob) {
		t.Fatalf("expected pending profile to round trip, got name=%q dob=%v", got.Name, got.DOB)
	}
}

func TestOTPRepositoryReplaceResetsAttempts(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewOTPRepository(client, "", 0)
	ctx := context.Background()
	now := time.Now().UTC()

	first := domain.OTPChallenge{Email: "a@b.co", CodeHash: "old", ExpiresAt: now.Add(time.Minute)}
	if err := repo.Replace(ctx, first); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}
	if _, err := repo.ReserveAttempt(ctx, "a@b.co", 5); err != nil {
		t.Fatalf("ReserveAttempt returned error: %v", err)
	}

	second := domain.OTPChallenge{Email: "a@b.co", CodeHash: "new", ExpiresAt: now.Add(time.Minute)}
	if err := repo.Replace(ctx, second); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}

	got, err := repo.Get(ctx, "a@b.co")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.CodeHash != "new" || got.Attempts != 0 {
		t.Fatalf("expected fresh challenge, got %+v", got)
	}
}

func TestOTPRepositoryReserveAttemptAndDelete(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewOTPRepository(client, "otp", time.Minute)
	ctx := context.Background()

	if _, err := repo.ReserveAttempt(ctx, "missing@example.com", 5); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing challenge, got %v", err)
	}

	challenge := domain.OTPChallenge{Email: "x@y.z", CodeHash: "h", ExpiresAt: time.Now().Add(time.Minute)}
	if err := repo.Replace(ctx, challenge); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}

	for want := 1; want <= 3; want++ {
		got, err := repo.ReserveAttempt(ctx, "x@y.z", 3)
		if err != nil {
			t.Fatalf("ReserveAttempt returned error: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d attempts, got %d", want, got)
		}
	}
	if _, err := repo.ReserveAttempt(ctx, "x@y.z", 3); !errors.Is(err, repository.ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded at the cap, got %v", err)
	}
	if got := mr.HGet("otp:x@y.z", "attempts"); got != "3" {
		t.Fatalf("attempts must stay at the cap, got %q", got)
	}

	if err := repo.Delete(ctx, "x@y.z"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := repo.Delete(ctx, "x@y.z"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second Delete should report ErrNotFound, got %v", err)
	}
	if _, err := repo.Get(ctx, "x@y.z"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := repo.ReserveAttempt(ctx, "x@y.z", 3); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if mr.Exists("otp:x@y.z") {
		t.Fatalf("reserving against a deleted challenge must not recreate the key")
	}
}

func TestOTPRepositoryReserveAttemptHoldsCapUnderConcurrency(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewOTPRepository(client, "otp", time.Minute)
	ctx := context.Background()

	challenge := domain.OTPChallenge{Email: "race@example.com", CodeHash: "h", ExpiresAt: time.Now().Add(time.Minute)}
	if err := repo.Replace(ctx, challenge); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}

	const workers = 40
	var (
		wg       sync.WaitGroup
		reserved atomic.Int32
		exceeded atomic.Int32
		failures = make(chan error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ReserveAttempt(ctx, "race@example.com", 5)
			switch {
			case err == nil:
				reserved.Add(1)
			case errors.Is(err, repository.ErrLimitExceeded):
				exceeded.Add(1)
			default:
				failures <- err
			}
		}()
	}
	wg.Wait()
	close(failures)

	for err := range failures {
		t.Fatalf("ReserveAttempt returned error: %v", err)
	}
	if reserved.Load() != 5 || exceeded.Load() != workers-5 {
		t.Fatalf("expected 5 reservations and %d rejections, got %d and %d", workers-5, reserved.Load(), exceeded.Load())
	}
	if got := mr.HGet("otp:race@example.com", "attempts"); got != "5" {
		t.Fatalf("expected attempts to stop at 5, got %q", got)
	}
}

func TestOTPRepositoryKeepsSubSecondExpiry(t *testing.T) {
	_, client := newTestRedis(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 750*int(time.Millisecond), time.UTC)
	repo := NewOTPRepository(client, "otp", time.Minute)
	repo.WithClock(func() time.Time { return now })
	ctx := context.Background()

	challenge := domain.OTPChallenge{Email: "ms@example.com", CodeHash: "h", CreatedAt: now, ExpiresAt: now.Add(5 * time.Minute)}
	if err := repo.Replace(ctx, challenge); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}

	got, err := repo.Get(ctx, "ms@example.com")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !got.ExpiresAt.Equal(challenge.ExpiresAt) || !got.CreatedAt.Equal(now) {
		t.Fatalf("expected millisecond precision, got created=%s expires=%s", got.CreatedAt, got.ExpiresAt)
	}
	if got.Expired(challenge.ExpiresAt) {
		t.Fatalf("challenge must still be valid at its expiry instant")
	}
	if !got.Expired(challenge.ExpiresAt.Add(time.Millisecond)) {
		t.Fatalf("challenge must be expired just after its expiry instant")
	}
}

func TestOTPRepositoryKeepsExpiredChallengeUntilRetention(t *testing.T) {
	mr, client := newTestRedis(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewOTPRepository(client, "otp", 10*time.Minute)
	repo.WithClock(func() time.Time { return now })
	ctx := context.Background()

	challenge := domain.OTPChallenge{Email: "late@example.com", CodeHash: "h", ExpiresAt: now.Add(5 * time.Minute)}
	if err := repo.Replace(ctx, challenge); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}

	mr.FastForward(6 * time.Minute)
	got, err := repo.Get(ctx, "late@example.com")
	if err != nil {
		t.Fatalf("expired challenge should still be readable, got %v", err)
	}
	if !got.Expired(now.Add(6 * time.Minute)) {
		t.Fatalf("expected challenge to report expiry")
	}

	mr.FastForward(10 * time.Minute)
	if _, err := repo.Get(ctx, "late@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected key to be gone after retention, got %v", err)
	}
}

func TestOTPRepositoryReplaceValidates(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewOTPRepository(client, "otp", time.Minute)

	if err := repo.Replace(context.Background(), domain.OTPChallenge{CodeHash: "h", ExpiresAt: time.Now()}); err == nil {
		t.Fatalf("expected error for missing email")
	}
	if err := repo.Replace(context.Background(), domain.OTPChallenge{Email: "a@b.c", ExpiresAt: time.Now()}); err == nil {
		t.Fatalf("expected error for missing hash")
	}
}
