package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fleet-backend/internal/platform/apierr"
)

const internalMessage = "Something went wrong. Please try again"

// ErrorEnvelope is the error body every endpoint returns.
type ErrorEnvelope struct {
	Error string `json:"Error"`
}

// Messages overrides the client-facing message per status code.
type Messages map[int]string

func RespondError(c *gin.Context, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: msg})
}

// RespondDomainError classifies err and writes the matching status. The message comes
// from msgs when present; internal errors never echo the underlying error text.
func RespondDomainError(c *gin.Context, err error, msgs Messages) {
	ae := apierr.FromDomain(err)
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, "internal", nil)
	}
	_ = c.Error(err)
	msg, ok := msgs[ae.Status]
	if !ok {
		if ae.Status >= http.StatusInternalServerError {
			msg = internalMessage
		} else {
			msg = ae.Error()
		}
	}
	RespondError(c, ae.Status, msg)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
