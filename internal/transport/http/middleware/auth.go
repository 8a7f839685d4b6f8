package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
	"github.com/rawatapurva/HD-Notes-App/internal/usecase"
)

// ErrorResponse matches handlers.ErrorResponse.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, msg string) ErrorResponse {
	return ErrorResponse{Error: msg, TraceID: GetTraceID(c)}
}

// SessionVerifier resolves a bearer token into the identity it asserts.
type SessionVerifier interface {
	ParseSessionToken(token string) (domain.SessionIdentity, error)
}

// RequireSession validates the bearer session token and stores the account
// id and email on the gin context.
func RequireSession(verifier SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "missing authorization header"))
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "invalid authorization format"))
			return
		}

		identity, err := verifier.ParseSessionToken(token)
		if err != nil {
			msg := "invalid session token"
			if errors.Is(err, usecase.ErrSessionTokenExpired) {
				msg = "session token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, msg))
			return
		}

		c.Set(UserIDKey, identity.UserID)
		c.Set(EmailKey, identity.Email)

		c.Next()
	}
}
