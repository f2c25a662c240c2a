package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"natours/api/internal/apperr"
)

const genericFailure = "Something went very wrong!"

// Errors renders the last error recorded on the context. Operational errors
// keep their status and message. Anything else is a 500 whose details are
// only shown outside production.
func Errors(production bool, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, body := Present(err, production)

		event := log.Warn()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event = event.Err(err).
			Int("status", status).
			Str("request_id", c.Writer.Header().Get(requestIDHeader))
		if oopsErr, ok := oops.AsOops(err); ok {
			event = event.Str("code", fmt.Sprint(oopsErr.Code())).Fields(oopsErr.Context())
		}
		event.Msg("request failed")

		c.AbortWithStatusJSON(status, body)
	}
}

// Present maps err to a status and response body.
func Present(err error, production bool) (int, gin.H) {
	if appErr, ok := apperr.As(err); ok {
		status := appErr.Kind.Status()
		body := gin.H{
			"status":  statusLabel(status),
			"message": appErr.Message,
		}
		// the cause stays in the log; for sessions it would tell expired from forged
		if !production {
			body["kind"] = string(appErr.Kind)
		}
		return status, body
	}

	if production {
		return http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": genericFailure,
		}
	}

	body := gin.H{
		"status":  "error",
		"message": err.Error(),
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		body["code"] = fmt.Sprint(oopsErr.Code())
		body["context"] = oopsErr.Context()
		body["stack"] = oopsErr.Stacktrace()
	}
	return http.StatusInternalServerError, body
}

func statusLabel(status int) string {
	if status >= http.StatusInternalServerError {
		return "error"
	}
	return "fail"
}
