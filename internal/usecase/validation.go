package usecase

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const dobLayout = "2006-01-02"

var (
	validate    = validator.New()
	namePattern = regexp.MustCompile(`^[\p{L} ]+$`)
	otpPattern  = regexp.MustCompile(`^[0-9]{6}$`)
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	if err := validate.Var(email, "email"); err != nil {
		return &ValidationError{Field: "email", Message: "Invalid email"}
	}
	return nil
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) < 2 {
		return &ValidationError{Field: "name", Message: "Name must be at least 2 characters"}
	}
	if !namePattern.MatchString(name) {
		return &ValidationError{Field: "name", Message: "Name may only contain letters and spaces"}
	}
	return nil
}

// parseDOB accepts an empty string or an ISO calendar date.
func parseDOB(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	dob, err := time.Parse(dobLayout, raw)
	if err != nil {
		return nil, &ValidationError{Field: "dob", Message: "Date of birth must be YYYY-MM-DD"}
	}
	return &dob, nil
}

func validateOTP(code string) error {
	if !otpPattern.MatchString(code) {
		return &ValidationError{Field: "otp", Message: "OTP must be 6 digits"}
	}
	return nil
}

func validateNoteTitle(title string) error {
	if title == "" {
		return &ValidationError{Field: "title", Message: "Title is required"}
	}
	if utf8.RuneCountInString(title) > maxNoteTitleLength {
		return &ValidationError{Field: "title", Message: "Title must be at most 200 characters"}
	}
	return nil
}

func validateNoteBody(body string) error {
	if utf8.RuneCountInString(body) > maxNoteBodyLength {
		return &ValidationError{Field: "body", Message: "Body must be at most 5000 characters"}
	}
	return nil
}
