// Package httpkit holds the gin plumbing shared by all modules: responses,
// identity and middleware.
package httpkit

import (
	"net/http"
	"strconv"

	"jury_portal_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// retryAfterSeconds is advertised on "please wait" responses.
const retryAfterSeconds = 2

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// HandleError writes err and reports whether there was one. *apperr.Error
// values decide the status and their message is shown; anything else becomes
// a 500 whose text stays in the request log.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind == apperr.KindInternal || appErr.Kind == apperr.KindUnknown {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: apperr.KindInternal.Code()})
		return true
	}

	if appErr.Kind == apperr.KindTooManyRequests {
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	c.JSON(appErr.HTTPStatus(), ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Kind.Code(),
		Details: appErr.Details,
	})
	return true
}
