package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/oops"
)

// Recovery turns a panic into an internal error for the Errors presenter.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("request_id", c.Writer.Header().Get(requestIDHeader)).
					Msg("panic recovered")
				_ = c.Error(oops.Code("PANIC").With("route", routeLabel(c)).Errorf("panic: %v", r))
				c.Abort()
			}
		}()
		c.Next()
	}
}
