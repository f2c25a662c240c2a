package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"natours/api/internal/apperr"
	"natours/api/internal/middleware"
	"natours/api/internal/service"
)

// logoutCookieTTL is how long the logout placeholder cookie lives.
const logoutCookieTTL = 10 * time.Second

type signupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updatePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword"`
	NewPasswordConfirm string `json:"newPasswordConfirm"`
}

func (h HandlerSet) Signup(c *gin.Context) {
	var req signupRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.accounts.Signup(c.Request.Context(), service.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		WelcomeURL:      h.publicURL() + "/me",
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.sendToken(c, http.StatusCreated, result)
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	h.sendToken(c, http.StatusOK, result)
}

// Logout overwrites the session cookie with a short-lived placeholder. Bearer
// tokens held by the client stay valid until they expire.
func (h HandlerSet) Logout(c *gin.Context) {
	h.setSessionCookie(c, middleware.LoggedOutSentinel, h.now().Add(logoutCookieTTL))
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h HandlerSet) UpdateMyPassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperr.New(apperr.Unauthenticated, apperr.MsgNotLoggedIn))
		return
	}
	var req updatePasswordRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.accounts.ChangePassword(c.Request.Context(), user.ID,
		req.CurrentPassword, req.NewPassword, req.NewPasswordConfirm)
	if err != nil {
		fail(c, err)
		return
	}
	h.sendToken(c, http.StatusOK, result)
}

func (h HandlerSet) sendToken(c *gin.Context, status int, result service.AuthResult) {
	h.setSessionCookie(c, result.Token, h.now().Add(h.cfg.CookieTTL()))
	c.JSON(status, gin.H{
		"status": "success",
		"token":  result.Token,
		"data":   gin.H{"user": result.User},
	})
}

func (h HandlerSet) setSessionCookie(c *gin.Context, value string, expires time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, apperr.Wrap(apperr.InvalidInput, "Invalid request body", err))
		return false
	}
	return true
}

// publicURL is the configured origin for mailed links. Request headers are
// never trusted for it.
func (h HandlerSet) publicURL() string {
	return strings.TrimRight(h.cfg.HTTP.PublicURL, "/")
}
