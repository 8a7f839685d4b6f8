package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
	"github.com/rawatapurva/HD-Notes-App/internal/transport/http/middleware"
)

const dobLayout = "2006-01-02"

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with the request's trace ID.
func NewErrorResponse(c *gin.Context, msg string) ErrorResponse {
	return ErrorResponse{Error: msg, TraceID: middleware.GetTraceID(c)}
}

type MessageResponse struct {
	Message string `json:"message"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// RequestOTPRequest starts an email signup.
type RequestOTPRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	DOB   string `json:"dob"`
}

type SignInRequestOTPRequest struct {
	Email string `json:"email"`
}

// VerifyOTPRequest completes either flow. Name and DOB only matter for new accounts.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
	Name  string `json:"name"`
	DOB   string `json:"dob"`
}

type SignInVerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type GoogleAuthRequest struct {
	IDToken string `json:"idToken"`
}

// UserResponse is the public projection of an account.
type UserResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	DOB      *string `json:"dob"`
	Provider string  `json:"provider"`
}

// AuthResponse is returned by every successful sign-in.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type MeResponse struct {
	User UserResponse `json:"user"`
}

type CreateNoteRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// NoteResponse keeps the field names the web client already reads.
type NoteResponse struct {
	ID        string    `json:"_id"`
	User      string    `json:"user"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type NoteListResponse struct {
	Notes []NoteResponse `json:"notes"`
}

type NoteEnvelope struct {
	Note NoteResponse `json:"note"`
}

// HealthResponse is served by /healthz.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse lists the state of each dependency.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func newUserResponse(user domain.User) UserResponse {
	resp := UserResponse{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Provider: string(user.Provider),
	}
	if user.DOB != nil {
		dob := user.DOB.Format(dobLayout)
		resp.DOB = &dob
	}
	return resp
}

func newNoteResponse(note domain.Note) NoteResponse {
	return NoteResponse{
		ID:        note.ID,
		User:      note.UserID,
		Title:     note.Title,
		Body:      note.Body,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}
