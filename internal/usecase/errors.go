package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input. Concrete failures are *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown account, challenge or note. Concrete failures are *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrOTPExpired indicates the challenge is past its expiry.
	ErrOTPExpired = errors.New("otp expired")
	// ErrOTPRateLimited indicates the challenge exhausted its attempts.
	ErrOTPRateLimited = errors.New("too many otp attempts")
	// ErrInvalidOTP indicates the submitted code does not match the challenge.
	ErrInvalidOTP = errors.New("invalid otp")
	// ErrAuthFailed indicates external identity verification failed.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrMissingIDToken is an ErrAuthFailed raised before contacting the identity provider.
	ErrMissingIDToken = fmt.Errorf("%w: missing id token", ErrAuthFailed)
	// ErrDependency wraps store, mail and token issuer failures.
	ErrDependency = errors.New("dependency failure")
	// ErrInvalidSessionToken indicates a malformed or forged session token.
	ErrInvalidSessionToken = errors.New("invalid session token")
	// ErrSessionTokenExpired indicates the session token is past its validity window.
	ErrSessionTokenExpired = errors.New("session token expired")
)

var (
	// ErrOTPNotFound is returned when no challenge exists for the email.
	ErrOTPNotFound = &NotFoundError{Resource: "otp_challenge", Message: "otp not requested or expired"}
	// ErrAccountNotFound is returned when no user exists for the email or id.
	ErrAccountNotFound = &NotFoundError{Resource: "account", Message: "account not found"}
	// ErrNoteNotFound is returned when the note does not exist or belongs to someone else.
	ErrNoteNotFound = &NotFoundError{Resource: "note", Message: "note not found"}
)

// ValidationError reports the first offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError identifies which resource was missing.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func dependencyError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependency, op, err)
}
