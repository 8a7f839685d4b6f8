package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
	"github.com/rawatapurva/HD-Notes-App/internal/transport/http/middleware"
	"github.com/rawatapurva/HD-Notes-App/internal/usecase"
)

const (
	msgSignupOTPSent = "OTP sent. Check your inbox (or console in dev)."
	msgSignInOTPSent = "OTP sent for sign-in."
)

// AuthService is the part of usecase.AuthService the HTTP layer drives.
type AuthService interface {
	RequestEmailOtp(ctx context.Context, name, email, dob string) error
	RequestSignInOtp(ctx context.Context, email string) error
	VerifyOtp(ctx context.Context, in usecase.VerifyOTPInput) (*usecase.AuthResult, error)
	VerifySignInOtp(ctx context.Context, email, otp string) (*usecase.AuthResult, error)
	VerifyGoogleIdentity(ctx context.Context, idToken string) (*usecase.AuthResult, error)
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
}

var otpVerifyErrors = []ErrorCase{
	{Err: usecase.ErrOTPNotFound, Status: http.StatusBadRequest, Message: "OTP not requested or expired"},
	{Err: usecase.ErrOTPExpired, Status: http.StatusBadRequest, Message: "OTP expired"},
	{Err: usecase.ErrOTPRateLimited, Status: http.StatusTooManyRequests, Message: "Too many OTP attempts"},
	{Err: usecase.ErrInvalidOTP, Status: http.StatusBadRequest, Message: "Invalid OTP"},
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "Account not found"},
}

// AuthHandler exposes the OTP and Google sign-in endpoints.
type AuthHandler struct {
	auth AuthService
}

func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds the auth routes. otpMiddlewares run ahead of the two
// endpoints that send mail.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, session gin.HandlerFunc, otpMiddlewares ...gin.HandlerFunc) {
	r.POST("/request-otp", chain(otpMiddlewares, h.requestOTP)...)
	r.POST("/signin-request-otp", chain(otpMiddlewares, h.signInRequestOTP)...)
	r.POST("/verify-otp", h.verifyOTP)
	r.POST("/signin-verify-otp", h.signInVerifyOTP)
	r.POST("/google", h.google)
	if session != nil {
		r.GET("/me", session, h.me)
	}
}

// requestOTP godoc
// @Summary Request a signup OTP
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RequestOTPRequest true "Signup details"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/request-otp [post]
func (h *AuthHandler) requestOTP(c *gin.Context) {
	var req RequestOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.auth.RequestEmailOtp(c.Request.Context(), req.Name, req.Email, req.DOB); err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "Failed to send OTP")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: msgSignupOTPSent})
}

func (h *AuthHandler) signInRequestOTP(c *gin.Context) {
	var req SignInRequestOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	err := h.auth.RequestSignInOtp(c.Request.Context(), req.Email)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "No account found. Please sign up first."},
		}, http.StatusInternalServerError, "Failed to send OTP")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: msgSignInOTPSent})
}

// verifyOTP godoc
// @Summary Verify an OTP and sign in, creating the account on first use
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body VerifyOTPRequest true "Email and code"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /auth/verify-otp [post]
func (h *AuthHandler) verifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.auth.VerifyOtp(c.Request.Context(), usecase.VerifyOTPInput{
		Email: req.Email,
		OTP:   req.OTP,
		Name:  req.Name,
		DOB:   req.DOB,
	})
	if err != nil {
		RespondWithMappedError(c, err, otpVerifyErrors, http.StatusInternalServerError, "Failed to verify OTP")
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(result))
}

func (h *AuthHandler) signInVerifyOTP(c *gin.Context) {
	var req SignInVerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.auth.VerifySignInOtp(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		RespondWithMappedError(c, err, otpVerifyErrors, http.StatusInternalServerError, "Failed to verify OTP")
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(result))
}

// google godoc
// @Summary Sign in with a Google ID token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body GoogleAuthRequest true "Google credential"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/google [post]
func (h *AuthHandler) google(c *gin.Context) {
	// An unreadable body is answered like a missing token.
	var req GoogleAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.IDToken = ""
	}

	result, err := h.auth.VerifyGoogleIdentity(c.Request.Context(), req.IDToken)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrMissingIDToken, Status: http.StatusBadRequest, Message: "Missing idToken"},
			{Err: usecase.ErrAuthFailed, Status: http.StatusUnauthorized, Message: "Google auth failed"},
		}, http.StatusUnauthorized, "Google auth failed")
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(result))
}

func (h *AuthHandler) me(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	user, err := h.auth.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusUnauthorized, Message: "Account not found"},
		}, http.StatusInternalServerError, "Failed to load account")
		return
	}

	c.JSON(http.StatusOK, MeResponse{User: newUserResponse(*user)})
}

func chain(middlewares []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(middlewares)+1)
	out = append(out, middlewares...)
	return append(out, handler)
}

func newAuthResponse(result *usecase.AuthResult) AuthResponse {
	return AuthResponse{Token: result.Token, User: newUserResponse(result.User)}
}
