package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
	"github.com/rawatapurva/HD-Notes-App/internal/core/port"
	"github.com/rawatapurva/HD-Notes-App/internal/infra/config"
	"github.com/rawatapurva/HD-Notes-App/internal/infra/logger"
	"github.com/rawatapurva/HD-Notes-App/internal/infra/security"
	"github.com/rawatapurva/HD-Notes-App/internal/infra/telemetry"
	"github.com/rawatapurva/HD-Notes-App/internal/repository"
)

const (
	defaultOTPTTL         = 5 * time.Minute
	defaultOTPMaxAttempts = 5
	defaultUserName       = "User"
	defaultGoogleUserName = "Google User"

	flowSignup = "signup"
	flowSignin = "signin"

	tracerName = "notes/usecase/auth"
)

// AuthDependencies lists the collaborators of AuthService. Events and Metrics are optional.
type AuthDependencies struct {
	Users    port.UserRepository
	OTPs     port.OTPStore
	Codes    port.CodeGenerator
	Hasher   port.CodeHasher
	Notifier port.OTPNotifier
	Tokens   port.SessionTokens
	Identity port.IdentityVerifier
	Events   port.EventPublisher
	Metrics  *telemetry.AuthMetrics
}

// AuthResult is returned by every successful sign-in flow.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
	Created   bool
}

// VerifyOTPInput carries the verify-otp request. Name and DOB are optional.
type VerifyOTPInput struct {
	Email string
	OTP   string
	Name  string
	DOB   string
}

// AuthService coordinates OTP issuance, OTP verification, Google sign-in and
// session token minting.
type AuthService struct {
	users    port.UserRepository
	otps     port.OTPStore
	codes    port.CodeGenerator
	hasher   port.CodeHasher
	notifier port.OTPNotifier
	tokens   port.SessionTokens
	identity port.IdentityVerifier
	events   port.EventPublisher
	metrics  *telemetry.AuthMetrics

	otpTTL      time.Duration
	maxAttempts int

	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(cfg config.OTPSettings, deps AuthDependencies) (*AuthService, error) {
	switch {
	case deps.Users == nil:
		return nil, errors.New("auth service: user repository is required")
	case deps.OTPs == nil:
		return nil, errors.New("auth service: otp store is required")
	case deps.Codes == nil || deps.Hasher == nil:
		return nil, errors.New("auth service: code generator and hasher are required")
	case deps.Notifier == nil:
		return nil, errors.New("auth service: notifier is required")
	case deps.Tokens == nil:
		return nil, errors.New("auth service: session token issuer is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultOTPMaxAttempts
	}

	return &AuthService{
		users:       deps.Users,
		otps:        deps.OTPs,
		codes:       deps.Codes,
		hasher:      deps.Hasher,
		notifier:    deps.Notifier,
		tokens:      deps.Tokens,
		identity:    deps.Identity,
		events:      deps.Events,
		metrics:     deps.Metrics,
		otpTTL:      ttl,
		maxAttempts: maxAttempts,
		logger:      zap.NewNop(),
		tracer:      otel.Tracer(tracerName),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}, nil
}

// WithLogger attaches a structured logger.
func (s *AuthService) WithLogger(log *zap.Logger) *AuthService {
	if log != nil {
		s.logger = log
	}
	return s
}

// WithClock overrides the time source, used in tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithTracer overrides the tracer taken from the global provider.
func (s *AuthService) WithTracer(tracer trace.Tracer) *AuthService {
	if tracer != nil {
		s.tracer = tracer
	}
	return s
}

// RequestEmailOtp issues a signup code. No account is created until the code is verified.
func (s *AuthService) RequestEmailOtp(ctx context.Context, name, email, dob string) (err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.RequestEmailOtp")
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.OTPRequested(flowSignup, outcome(err)) }()

	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	parsedDOB, err := parseDOB(dob)
	if err != nil {
		return err
	}

	return s.issueChallenge(ctx, email, name, parsedDOB)
}

// RequestSignInOtp issues a sign-in code for an existing account.
func (s *AuthService) RequestSignInOtp(ctx context.Context, email string) (err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.RequestSignInOtp")
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.OTPRequested(flowSignin, outcome(err)) }()

	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return dependencyError("lookup user", err)
	}

	return s.issueChallenge(ctx, email, "", nil)
}

func (s *AuthService) issueChallenge(ctx context.Context, email, name string, dob *time.Time) error {
	code, err := s.codes.Generate()
	if err != nil {
		return dependencyError("generate otp", err)
	}

	hash, err := s.hasher.Hash(code)
	if err != nil {
		return dependencyError("hash otp", err)
	}

	now := s.now()
	challenge := domain.OTPChallenge{
		Email:     email,
		CodeHash:  hash,
		Name:      name,
		DOB:       dob,
		CreatedAt: now,
		ExpiresAt: now.Add(s.otpTTL),
	}
	if err := s.otps.Replace(ctx, challenge); err != nil {
		return dependencyError("store otp", err)
	}

	if err := s.notifier.SendOTP(ctx, email, code, s.otpTTL); err != nil {
		if delErr := s.otps.Delete(ctx, email); delErr != nil && !errors.Is(delErr, repository.ErrNotFound) {
			s.logger.Warn("discard undeliverable otp failed", zap.String("email", logger.MaskEmail(email)), zap.Error(delErr))
		}
		return dependencyError("send otp", err)
	}

	s.logger.Info("otp issued",
		zap.String("email", logger.MaskEmail(email)),
		zap.Time("expires_at", challenge.ExpiresAt),
	)
	return nil
}

// VerifyOtp consumes a challenge and signs the user in, creating the account
// on first verification.
func (s *AuthService) VerifyOtp(ctx context.Context, in VerifyOTPInput) (result *AuthResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.VerifyOtp")
	defer func() { endSpan(span, err) }()

	email := normalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(in.OTP)
	if err := validateOTP(code); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name != "" {
		if err := validateName(name); err != nil {
			return nil, err
		}
	}
	dob, err := parseDOB(in.DOB)
	if err != nil {
		return nil, err
	}

	challenge, err := s.consumeChallenge(ctx, email, code)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = challenge.Name
	}
	if dob == nil {
		dob = challenge.DOB
	}

	user, created, err := s.findOrCreateEmailUser(ctx, email, name, dob)
	if err != nil {
		return nil, err
	}

	return s.signIn(ctx, *user, created, "otp")
}

// VerifySignInOtp consumes a challenge for an existing account. It never
// creates or modifies users.
func (s *AuthService) VerifySignInOtp(ctx context.Context, email, otp string) (result *AuthResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.VerifySignInOtp")
	defer func() { endSpan(span, err) }()

	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(otp)
	if err := validateOTP(code); err != nil {
		return nil, err
	}

	if _, err := s.consumeChallenge(ctx, email, code); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, dependencyError("lookup user", err)
	}

	return s.signIn(ctx, *user, false, "otp")
}

// consumeChallenge runs the ordered checks: missing, expired, exhausted,
// mismatch. The attempt is reserved before the hash comparison so parallel
// guesses share the same cap. A matching challenge is deleted before returning.
func (s *AuthService) consumeChallenge(ctx context.Context, email, code string) (*domain.OTPChallenge, error) {
	challenge, err := s.otps.Get(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.OTPVerified("not_found")
			return nil, ErrOTPNotFound
		}
		return nil, dependencyError("load otp", err)
	}

	if challenge.Expired(s.now()) {
		s.discardChallenge(ctx, email)
		s.metrics.OTPVerified("expired")
		return nil, ErrOTPExpired
	}

	attempts, err := s.otps.ReserveAttempt(ctx, email, s.maxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrLimitExceeded):
			s.discardChallenge(ctx, email)
			s.metrics.OTPVerified("rate_limited")
			return nil, ErrOTPRateLimited
		case errors.Is(err, repository.ErrNotFound):
			s.metrics.OTPVerified("not_found")
			return nil, ErrOTPNotFound
		}
		return nil, dependencyError("record otp attempt", err)
	}

	ok, err := s.hasher.Compare(challenge.CodeHash, code)
	if err != nil {
		return nil, dependencyError("compare otp", err)
	}
	if !ok {
		s.logger.Info("otp mismatch",
			zap.String("email", logger.MaskEmail(email)),
			zap.Int("attempts", attempts),
		)
		s.metrics.OTPVerified("invalid")
		return nil, ErrInvalidOTP
	}

	if err := s.otps.Delete(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Consumed by a concurrent verification.
			s.metrics.OTPVerified("not_found")
			return nil, ErrOTPNotFound
		}
		return nil, dependencyError("consume otp", err)
	}

	s.metrics.OTPVerified(telemetry.OutcomeSuccess)
	return challenge, nil
}

func (s *AuthService) discardChallenge(ctx context.Context, email string) {
	if err := s.otps.Delete(ctx, email); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("discard otp failed", zap.String("email", logger.MaskEmail(email)), zap.Error(err))
	}
}

func (s *AuthService) findOrCreateEmailUser(ctx context.Context, email, name string, dob *time.Time) (*domain.User, bool, error) {
	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.backfillProfile(ctx, user, name, dob); err != nil {
			return nil, false, err
		}
		return user, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, dependencyError("lookup user", err)
	}

	if name == "" {
		name = defaultUserName
	}
	now := s.now()
	user = &domain.User{
		ID:        s.newID(),
		Email:     email,
		Name:      name,
		DOB:       dob,
		Provider:  domain.ProviderEmail,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.Create(ctx, *user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			existing, getErr := s.users.GetByEmail(ctx, email)
			if getErr != nil {
				return nil, false, dependencyError("lookup user", getErr)
			}
			return existing, false, nil
		}
		return nil, false, dependencyError("create user", err)
	}

	return user, true, nil
}

// backfillProfile fills name and dob only where the record has none.
func (s *AuthService) backfillProfile(ctx context.Context, user *domain.User, name string, dob *time.Time) error {
	changed := false
	if user.Name == "" && name != "" {
		user.Name = name
		changed = true
	}
	if user.DOB == nil && dob != nil {
		user.DOB = dob
		changed = true
	}
	if !changed {
		return nil
	}

	user.UpdatedAt = s.now()
	if err := s.users.UpdateProfile(ctx, user.ID, user.Name, user.DOB, user.UpdatedAt); err != nil {
		return dependencyError("update user profile", err)
	}
	return nil
}

// VerifyGoogleIdentity signs in with a Google ID token, creating the account
// or linking the Google subject to an existing email account.
func (s *AuthService) VerifyGoogleIdentity(ctx context.Context, idToken string) (result *AuthResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.VerifyGoogleIdentity")
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.GoogleSignIn(outcome(err)) }()

	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, ErrMissingIDToken
	}
	if s.identity == nil {
		return nil, fmt.Errorf("%w: identity verifier not configured", ErrAuthFailed)
	}

	identity, err := s.identity.Verify(ctx, idToken)
	if err != nil {
		s.logger.Info("google token rejected", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	email := normalizeEmail(identity.Email)
	if email == "" || identity.Subject == "" {
		return nil, fmt.Errorf("%w: incomplete identity claims", ErrAuthFailed)
	}

	created := false
	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		user, created, err = s.createGoogleUser(ctx, email, identity)
		if err != nil {
			return nil, err
		}
	default:
		return nil, dependencyError("lookup user", err)
	}

	if user.GoogleID == nil {
		if err := s.linkGoogle(ctx, user, identity.Subject); err != nil {
			return nil, err
		}
	}

	return s.signIn(ctx, *user, created, "google")
}

// createGoogleUser inserts a google account; on an email race it returns the
// concurrently created record instead.
func (s *AuthService) createGoogleUser(ctx context.Context, email string, identity domain.GoogleIdentity) (*domain.User, bool, error) {
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = defaultGoogleUserName
	}
	subject := identity.Subject
	now := s.now()

	user := &domain.User{
		ID:        s.newID(),
		Email:     email,
		Name:      name,
		Provider:  domain.ProviderGoogle,
		GoogleID:  &subject,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.Create(ctx, *user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			existing, getErr := s.users.GetByEmail(ctx, email)
			if getErr != nil {
				return nil, false, dependencyError("lookup user", getErr)
			}
			return existing, false, nil
		}
		return nil, false, dependencyError("create user", err)
	}

	return user, true, nil
}

func (s *AuthService) linkGoogle(ctx context.Context, user *domain.User, subject string) error {
	now := s.now()
	if err := s.users.LinkGoogle(ctx, user.ID, subject, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Already linked by a concurrent request.
			return nil
		}
		return dependencyError("link google account", err)
	}

	user.GoogleID = &subject
	user.UpdatedAt = now

	s.publish(ctx, "google_linked", func(ctx context.Context) error {
		return s.events.PublishGoogleAccountLinked(ctx, domain.GoogleAccountLinkedEvent{
			UserID:   user.ID,
			GoogleID: subject,
			LinkedAt: now,
		})
	})
	return nil
}

func (s *AuthService) signIn(ctx context.Context, user domain.User, created bool, method string) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Mint(user.ID, user.Email)
	if err != nil {
		return nil, dependencyError("mint session token", err)
	}

	now := s.now()
	if created {
		s.publish(ctx, "user_registered", func(ctx context.Context) error {
			return s.events.PublishUserRegistered(ctx, domain.UserRegisteredEvent{
				UserID:       user.ID,
				Email:        user.Email,
				Provider:     user.Provider,
				RegisteredAt: user.CreatedAt,
			})
		})
	}
	s.publish(ctx, "user_signed_in", func(ctx context.Context) error {
		return s.events.PublishUserSignedIn(ctx, domain.UserSignedInEvent{
			UserID:   user.ID,
			Method:   method,
			SignedAt: now,
		})
	})

	s.logger.Info("user signed in",
		zap.String("user_id", user.ID),
		zap.String("method", method),
		zap.Bool("created", created),
	)

	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user, Created: created}, nil
}

// publish delivers an event best effort. Failures never fail the sign-in.
func (s *AuthService) publish(ctx context.Context, kind string, fn func(context.Context) error) {
	if s.events == nil {
		return
	}
	if err := fn(ctx); err != nil {
		s.logger.Warn("publish event failed", zap.String("event", kind), zap.Error(err))
	}
}

// ParseSessionToken verifies a bearer token and returns its subject.
func (s *AuthService) ParseSessionToken(token string) (domain.SessionIdentity, error) {
	identity, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return domain.SessionIdentity{}, ErrSessionTokenExpired
		}
		return domain.SessionIdentity{}, ErrInvalidSessionToken
	}
	return identity, nil
}

// CurrentUser loads the account behind a verified session.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrAccountNotFound
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, dependencyError("lookup user", err)
	}
	return user, nil
}

func outcome(err error) string {
	if err != nil {
		return telemetry.OutcomeFailure
	}
	return telemetry.OutcomeSuccess
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.End()
}
