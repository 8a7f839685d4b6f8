package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rawatapurva/HD-Notes-App/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves err against known cases. Validation errors
// always answer 400 with their own message. Anything unmatched is attached to
// the gin context for the access log and answered with the fallback.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var verr *usecase.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, verr.Message))
		return
	}

	for _, cs := range cases {
		if cs.Err != nil && errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	_ = c.Error(err)
	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// bindJSON decodes the body and answers 400 on malformed JSON.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Invalid request body"))
		return false
	}
	return true
}
