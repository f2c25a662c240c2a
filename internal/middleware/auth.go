package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"natours/api/internal/models"
	"natours/api/internal/security"
)

const (
	SessionCookie     = "jwt"
	LoggedOutSentinel = "loggedout"

	currentUserKey = "current_user"
	sessionInfoKey = "session_info"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, security.SessionInfo, error)
}

type userCtxKey struct{}

// ExtractToken prefers an Authorization bearer token and falls back to the
// session cookie. The logout placeholder never counts as a token.
func ExtractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				return token
			}
		}
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" && cookie != LoggedOutSentinel {
		return cookie
	}
	return ""
}

// Protect rejects the request unless it carries a valid session for an active
// user whose password has not changed since the session was issued.
func Protect(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, info, err := auth.Authenticate(c.Request.Context(), ExtractToken(c))
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		attach(c, user, info)
		c.Next()
	}
}

// Identify attaches the user when the request carries a valid session and
// otherwise continues anonymously. Not for routes that change state.
func Identify(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := ExtractToken(c); token != "" {
			if user, info, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				attach(c, user, info)
			}
		}
		c.Next()
	}
}

func attach(c *gin.Context, user models.User, info security.SessionInfo) {
	c.Set(currentUserKey, user)
	c.Set(sessionInfoKey, info)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), userCtxKey{}, user))
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userCtxKey{}).(models.User)
	return user, ok
}
